package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
)

func cloneBook(b *domain.Book) *domain.Book {
	c := *b
	if b.Tags != nil {
		c.Tags = append([]string{}, b.Tags...)
	}
	return &c
}

type memBookRepo struct {
	mu        sync.Mutex
	books     map[string]*domain.Book
	lastQuery domain.BookQuery
	// beforeTransition runs inside Transition before the status check,
	// letting tests interleave a competing write.
	beforeTransition func()
}

func newMemBookRepo() *memBookRepo {
	return &memBookRepo{books: map[string]*domain.Book{}}
}

func (m *memBookRepo) Create(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = cloneBook(b)
	return nil
}

func (m *memBookRepo) GetByID(_ context.Context, id string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneBook(b), nil
}

func (m *memBookRepo) Update(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ID]; !ok {
		return domain.ErrNotFound
	}
	m.books[b.ID] = cloneBook(b)
	return nil
}

func (m *memBookRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *memBookRepo) List(_ context.Context, q domain.BookQuery) ([]*domain.Book, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	all := m.sorted()
	total := len(all)
	if q.Offset >= total {
		return []*domain.Book{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func (m *memBookRepo) ListAll(_ context.Context) ([]*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *memBookRepo) sorted() []*domain.Book {
	out := make([]*domain.Book, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, cloneBook(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memBookRepo) Transition(_ context.Context, id string, from domain.BookStatus, next *domain.Book) (bool, error) {
	if m.beforeTransition != nil {
		hook := m.beforeTransition
		m.beforeTransition = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.books[id]
	if !ok || cur.Status != from {
		return false, nil
	}
	cur.Status = next.Status
	cur.CheckedOutByUserID = next.CheckedOutByUserID
	cur.CheckedOutAt = next.CheckedOutAt
	cur.UpdatedAt = next.UpdatedAt
	return true, nil
}

type memActivityRepo struct {
	mu      sync.Mutex
	entries []*domain.ActivityLogEntry
	fail    error
}

func (m *memActivityRepo) Append(_ context.Context, e *domain.ActivityLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memActivityRepo) ListByBook(_ context.Context, bookID string) ([]*domain.ActivityLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ActivityLogEntry
	for _, e := range m.entries {
		if e.BookID == bookID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memActivityRepo) all() []*domain.ActivityLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.ActivityLogEntry(nil), m.entries...)
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	fail  error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUserRepo) ResolveOrCreate(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	if cur, ok := m.users[u.ID]; ok {
		cur.Email, cur.Name, cur.UpdatedAt = u.Email, u.Name, u.UpdatedAt
		c := *cur
		return &c, nil
	}
	c := *u
	m.users[u.ID] = &c
	out := c
	return &out, nil
}

func (m *memUserRepo) Upsert(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	c := *u
	if cur, ok := m.users[u.ID]; ok {
		c.CreatedAt = cur.CreatedAt
	}
	m.users[u.ID] = &c
	out := c
	return &out, nil
}

var errStoreDown = errors.New("store unavailable")
