package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/metrics"
)

// DefaultSearchLimit is used when a semantic search names no limit.
const DefaultSearchLimit = 5

// MetadataSuggestion is the assistant's guess for a title.
type MetadataSuggestion struct {
	Genre       string   `json:"genre"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Provider    string   `json:"provider"`
}

// SearchResult is one ranked match.
type SearchResult struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// SearchResponse wraps ranked matches.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Provider string         `json:"provider"`
}

type genreRule struct {
	keywords    []string
	genre       string
	tags        []string
	description string // %q receives the title
	confidence  float64
}

// Rules are tried in order; the first keyword hit wins.
var genreRules = []genreRule{
	{
		keywords:    []string{"program", "code", "software", "algorithm"},
		genre:       "Technology / Software Engineering",
		tags:        []string{"programming", "software-engineering", "technology"},
		description: `A technical book covering software development concepts and practices. "%s" explores key programming principles.`,
		confidence:  0.85,
	},
	{
		keywords:    []string{"design", "pattern", "architecture"},
		genre:       "Technology / Software Design",
		tags:        []string{"design-patterns", "architecture", "software-design"},
		description: `A book on software design principles and patterns. "%s" provides guidance on creating well-structured systems.`,
		confidence:  0.8,
	},
	{
		keywords:    []string{"science", "physics", "math"},
		genre:       "Science",
		tags:        []string{"science", "academic", "non-fiction"},
		description: `An educational book about scientific concepts. "%s" delves into fundamental scientific principles.`,
		confidence:  0.75,
	},
	{
		keywords:    []string{"history", "war", "civilization"},
		genre:       "History",
		tags:        []string{"history", "non-fiction", "educational"},
		description: `A historical narrative or analysis. "%s" examines significant events and their impact.`,
		confidence:  0.7,
	},
}

var fallbackRule = genreRule{
	genre:       "General Fiction",
	tags:        []string{"book"},
	description: `A book titled "%s"`,
	confidence:  0.6,
}

// AIService is a deterministic keyword heuristic standing in for a model.
type AIService struct {
	books    domain.BookRepository
	provider string
	logger   *slog.Logger
}

// NewAIService creates the assistant. provider is echoed in every response.
func NewAIService(books domain.BookRepository, provider string, logger *slog.Logger) *AIService {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == "" {
		provider = "mock"
	}
	return &AIService{books: books, provider: provider, logger: logger}
}

// SuggestMetadata guesses genre, tags and a description from a title.
func (s *AIService) SuggestMetadata(_ context.Context, title, author string) *MetadataSuggestion {
	folded := lower(title)

	rule := fallbackRule
	for _, r := range genreRules {
		if containsAny(folded, r.keywords) {
			rule = r
			break
		}
	}

	description := fmt.Sprintf(rule.description, title)
	if author != "" {
		description += fmt.Sprintf(" By %s.", author)
	}

	metrics.ObserveAI("suggest_metadata", s.provider)
	return &MetadataSuggestion{
		Genre:       rule.genre,
		Tags:        append([]string(nil), rule.tags...),
		Description: description,
		Confidence:  rule.confidence,
		Provider:    s.provider,
	}
}

// SemanticSearch ranks every book by the share of query terms found in its
// metadata. Terms of two characters or fewer never match but still count
// toward the denominator.
func (s *AIService) SemanticSearch(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	words := strings.Fields(lower(query))

	books, err := s.books.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load books for search: %w", err)
	}

	type scored struct {
		book    *domain.Book
		score   float64
		matches int
	}
	var hits []scored
	for _, b := range books {
		haystack := searchableText(b)
		matches := 0
		for _, w := range words {
			if len([]rune(w)) > 2 && strings.Contains(haystack, w) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		hits = append(hits, scored{book: b, score: float64(matches) / float64(len(words)), matches: matches})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			ID:     h.book.ID,
			Title:  h.book.Title,
			Author: h.book.Author,
			Score:  math.Round(h.score*100) / 100,
			Reason: fmt.Sprintf("Matched %d of %d query terms in book metadata.", h.matches, len(words)),
		})
	}

	metrics.ObserveAI("semantic_search", s.provider)
	s.logger.Debug("semantic search",
		slog.Int("terms", len(words)),
		slog.Int("candidates", len(books)),
		slog.Int("results", len(results)),
	)
	return &SearchResponse{Results: results, Provider: s.provider}, nil
}

func searchableText(b *domain.Book) string {
	var tags string
	if b.Tags != nil {
		if data, err := domain.EncodeTags(b.Tags); err == nil {
			tags = data
		}
	}
	parts := []string{b.Title, b.Author, deref(b.Genre), deref(b.Description), tags}
	return lower(strings.Join(parts, " "))
}

// lower folds s with Unicode-aware rules. Casers are stateful, so one is
// built per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
