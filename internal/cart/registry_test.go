package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OpenAndGet(t *testing.T) {
	r := NewRegistry(time.Hour)
	token, s := r.Open()
	s.Add(latte(4.5, 1))

	got, err := r.Get(token)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownCart)
}

func TestRegistry_IdleExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Minute)
	r.now = func() time.Time { return now }

	token, _ := r.Open()
	now = now.Add(30 * time.Second)
	_, err := r.Get(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = r.Get(token)
	assert.ErrorIs(t, err, ErrUnknownCart)
}

func TestRegistry_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Minute)
	r.now = func() time.Time { return now }

	r.Open()
	r.Open()
	now = now.Add(5 * time.Minute)
	assert.Equal(t, 2, r.sweep())
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry(time.Hour)
	token, s := r.Open()
	s.Add(latte(4.5, 1))

	r.Clear(token)
	assert.Equal(t, 0, s.Len())
	r.Clear("unknown")
}
