package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerTripsAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var transitions []string
	b := New(Config{
		Name:             "jwks",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	b.now = func() time.Time { return now }

	boom := errors.New("boom")
	assert.ErrorIs(t, b.Call(func() error { return boom }), boom)
	assert.ErrorIs(t, b.Call(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	assert.ErrorIs(t, b.Call(func() error { called = true; return nil }), ErrOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{
		"jwks:closed->open",
		"jwks:open->half_open",
		"jwks:half_open->closed",
	}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New(Config{FailureThreshold: 3, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_ = b.Call(func() error { return errors.New("down") })
	}
	now = now.Add(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	_ = b.Call(func() error { return errors.New("still down") })
	assert.Equal(t, StateOpen, b.State())
}

func TestSuccessResetsFailures(t *testing.T) {
	b := New(Config{FailureThreshold: 2, Cooldown: time.Minute})
	fail := func() error { return errors.New("x") }

	_ = b.Call(fail)
	_ = b.Call(func() error { return nil })
	_ = b.Call(fail)
	assert.Equal(t, StateClosed, b.State())
}
