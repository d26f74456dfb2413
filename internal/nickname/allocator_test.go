package nickname

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mimics the database's uniqueness guarantees in memory: every
// mutation happens under one lock, so reserve/claim are atomic the way the
// real unique constraint makes them.
type memStore struct {
	mu       sync.Mutex
	reserved map[string]struct{}
	profiles map[int64]string // telegramID -> nickname
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		reserved: make(map[string]struct{}),
		profiles: make(map[int64]string),
	}
}

func (s *memStore) NicknameTaken(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	for _, n := range s.profiles {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ReserveNickname(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	if _, dup := s.reserved[name]; dup {
		return false, nil
	}
	s.reserved[name] = struct{}{}
	return true, nil
}

func (s *memStore) ClaimNickname(_ context.Context, telegramID int64, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	for id, n := range s.profiles {
		if n == name && id != telegramID {
			return false, nil
		}
	}
	s.profiles[telegramID] = name
	return true, nil
}

func newTestAllocator(t *testing.T, store Store, opts ...Option) *Allocator {
	t.Helper()
	a, err := NewAllocator(DefaultWords(), store, opts...)
	require.NoError(t, err)
	return a
}

func TestNewAllocator_EmptyWordList(t *testing.T) {
	_, err := NewAllocator(Words{Nouns: []string{"fox"}, Colors: []string{"red"}}, newMemStore())
	assert.Error(t, err)
}

func TestGenerateAndReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves a well-formed name", func(t *testing.T) {
		store := newMemStore()
		a := newTestAllocator(t, store)

		name, err := a.GenerateAndReserve(ctx)
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z][A-Za-z]+_[1-9]\d{3}$`, name)

		// Reserved: the same name cannot be reserved again.
		ok, err := store.ReserveNickname(ctx, name)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("retries past a collision", func(t *testing.T) {
		store := newMemStore()

		// A deterministic rng makes every attempt produce the same
		// candidate pattern except for an advancing counter.
		n := 0
		a := newTestAllocator(t, store, WithRand(func(max int) int {
			n++
			return n % max
		}))

		first, err := a.GenerateAndReserve(ctx)
		require.NoError(t, err)
		second, err := a.GenerateAndReserve(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("exhaustion when the store never accepts", func(t *testing.T) {
		a := newTestAllocator(t, rejectingStore{newMemStore()})

		_, err := a.GenerateAndReserve(ctx)
		assert.ErrorIs(t, err, ErrExhausted)
	})

	t.Run("store fault propagates", func(t *testing.T) {
		store := newMemStore()
		store.failWith = errors.New("connection refused")
		a := newTestAllocator(t, store)

		_, err := a.GenerateAndReserve(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrExhausted)
	})

	t.Run("concurrent callers get distinct names", func(t *testing.T) {
		store := newMemStore()
		// Force heavy candidate collisions across goroutines: a tiny rng
		// range means most attempts generate identical candidates, so only
		// the atomic reserve keeps results distinct.
		var mu sync.Mutex
		seq := 0
		a := newTestAllocator(t, store, WithRand(func(max int) int {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return (seq / 7) % max
		}))

		const callers = 32
		results := make(chan string, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				name, err := a.GenerateAndReserve(ctx)
				if err == nil {
					results <- name
				}
			}()
		}
		wg.Wait()
		close(results)

		seen := make(map[string]struct{})
		for name := range results {
			_, dup := seen[name]
			assert.False(t, dup, "duplicate reservation: %s", name)
			seen[name] = struct{}{}
		}
		assert.Len(t, seen, callers)
	})
}

// rejectingStore reports every reservation as lost.
type rejectingStore struct{ *memStore }

func (rejectingStore) ReserveNickname(context.Context, string) (bool, error) {
	return false, nil
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()

	t.Run("returns up to three distinct available names", func(t *testing.T) {
		store := newMemStore()
		a := newTestAllocator(t, store)

		names, err := a.Suggest(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(names), 3)
		assert.NotEmpty(t, names)

		seen := map[string]struct{}{}
		for _, n := range names {
			assert.Regexp(t, `^[A-Z][A-Za-z]+ [A-Z][A-Za-z]+_[1-9]\d{3}$`, n)
			seen[n] = struct{}{}
		}
		assert.Len(t, seen, len(names))
	})

	t.Run("never suggests a name a profile holds", func(t *testing.T) {
		store := newMemStore()
		// Make the generator deterministic so the one possible candidate
		// is exactly the name we occupy.
		a := newTestAllocator(t, store, WithRand(func(max int) int { return 0 }))
		occupied := a.composeSuggestion()
		require.True(t, strings.Contains(occupied, " "))
		_, err := store.ClaimNickname(ctx, 1, occupied)
		require.NoError(t, err)

		names, err := a.Suggest(ctx)
		require.NoError(t, err)
		assert.Empty(t, names, "the only reachable candidate is taken")
	})

	t.Run("hold filters duplicates across calls", func(t *testing.T) {
		store := newMemStore()
		h := &memHold{held: map[string]struct{}{}}
		a := newTestAllocator(t, store, WithRand(func(max int) int { return 0 }), WithHold(h))

		first, err := a.Suggest(ctx)
		require.NoError(t, err)
		require.Len(t, first, 1) // deterministic rng reaches one candidate

		second, err := a.Suggest(ctx)
		require.NoError(t, err)
		assert.Empty(t, second, "candidate is already on hold")
	})

	t.Run("store fault propagates", func(t *testing.T) {
		store := newMemStore()
		store.failWith = errors.New("timeout")
		a := newTestAllocator(t, store)

		_, err := a.Suggest(ctx)
		assert.Error(t, err)
	})
}

type memHold struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (h *memHold) TryHold(_ context.Context, name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.held[name]; dup {
		return false
	}
	h.held[name] = struct{}{}
	return true
}

func TestClaim(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a := newTestAllocator(t, store)

	ok, err := a.Claim(ctx, 1, "Foo_1234")
	require.NoError(t, err)
	assert.True(t, ok, "first claim wins")

	ok, err = a.Claim(ctx, 2, "Foo_1234")
	require.NoError(t, err)
	assert.False(t, ok, "other user must be refused")

	ok, err = a.Claim(ctx, 1, "Foo_1234")
	require.NoError(t, err)
	assert.True(t, ok, "re-claiming one's own name is idempotent")
}
