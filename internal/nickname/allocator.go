package nickname

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	// ErrExhausted means the attempt cap was hit without finding a free
	// name. With three word lists the candidate space is huge, so this
	// points at a degenerate store state rather than bad luck.
	ErrExhausted = errors.New("nickname: generation attempts exhausted")

	// ErrConflict means the requested name is held by a different user.
	ErrConflict = errors.New("nickname: already taken")
)

// Store is the uniqueness authority for nicknames. Reserve and Claim must be
// single conditional writes: a separate availability read followed by a
// write would let two concurrent callers both observe "free" and both win.
type Store interface {
	// NicknameTaken reports whether any profile currently holds name.
	NicknameTaken(ctx context.Context, name string) (bool, error)
	// ReserveNickname atomically records name if absent. Returns false
	// when somebody else got there first.
	ReserveNickname(ctx context.Context, name string) (bool, error)
	// ClaimNickname atomically assigns name to the given user unless a
	// different user already holds it. Re-claiming one's own name is a
	// success.
	ClaimNickname(ctx context.Context, telegramID int64, name string) (bool, error)
}

// Hold is an optional advisory lease on suggested names, so two concurrent
// Suggest calls do not hand out the same candidate. It never substitutes for
// the store's unique constraint.
type Hold interface {
	TryHold(ctx context.Context, name string) bool
}

const (
	defaultMaxAttempts = 100
	suggestCount       = 3
)

// Allocator produces available nicknames and reserves them through the
// store. Safe for concurrent use.
type Allocator struct {
	words       Words
	store       Store
	hold        Hold
	maxAttempts int
	intN        func(n int) int
}

type Option func(*Allocator)

// WithHold attaches an advisory suggestion hold (typically Redis-backed).
func WithHold(h Hold) Option {
	return func(a *Allocator) { a.hold = h }
}

// WithRand replaces the random source; used in tests to force collisions.
func WithRand(intN func(n int) int) Option {
	return func(a *Allocator) { a.intN = intN }
}

func NewAllocator(words Words, store Store, opts ...Option) (*Allocator, error) {
	if err := words.validate(); err != nil {
		return nil, err
	}
	a := &Allocator{
		words:       words,
		store:       store,
		maxAttempts: defaultMaxAttempts,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// GenerateAndReserve produces a random nickname and reserves it atomically,
// retrying on collision up to the attempt cap.
func (a *Allocator) GenerateAndReserve(ctx context.Context) (string, error) {
	for i := 0; i < a.maxAttempts; i++ {
		candidate := a.compose()
		ok, err := a.store.ReserveNickname(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("reserve nickname: %w", err)
		}
		if ok {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}

// Suggest returns up to three distinct, currently available nicknames. The
// names are checked, not reserved: they can still be lost to another user
// between the suggestion and a later claim. Best effort; fewer than three
// (or none) come back when the attempt cap runs out.
func (a *Allocator) Suggest(ctx context.Context) ([]string, error) {
	out := make([]string, 0, suggestCount)
	seen := make(map[string]struct{}, suggestCount)

	for i := 0; i < a.maxAttempts && len(out) < suggestCount; i++ {
		candidate := a.composeSuggestion()
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		taken, err := a.store.NicknameTaken(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("check nickname: %w", err)
		}
		if taken {
			continue
		}
		if a.hold != nil && !a.hold.TryHold(ctx, candidate) {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

// Claim assigns name to the given user. Returns false when a different user
// holds the name; claiming a name the user already holds succeeds.
func (a *Allocator) Claim(ctx context.Context, telegramID int64, name string) (bool, error) {
	ok, err := a.store.ClaimNickname(ctx, telegramID, name)
	if err != nil {
		return false, fmt.Errorf("claim nickname: %w", err)
	}
	return ok, nil
}

// compose builds a reservation candidate: one of three concatenated word
// templates plus an underscore and a 4-digit number.
func (a *Allocator) compose() string {
	var word string
	switch a.intN(3) {
	case 0:
		word = a.pickColor() + a.pickNoun()
	case 1:
		word = a.pickAdjective() + a.pickColor() + a.pickNoun()
	default:
		word = a.pickAdjective() + a.pickNoun()
	}
	return fmt.Sprintf("%s_%d", word, a.number())
}

// composeSuggestion builds a lighter two-word candidate with a space, used
// only for the suggestions endpoint.
func (a *Allocator) composeSuggestion() string {
	var word string
	switch a.intN(3) {
	case 0:
		word = a.pickColor() + " " + a.pickAdjective() + a.pickNoun()
	case 1:
		word = a.pickAdjective() + " " + a.pickNoun()
	default:
		word = a.pickColor() + " " + a.pickNoun()
	}
	return fmt.Sprintf("%s_%d", word, a.number())
}

func (a *Allocator) number() int {
	return 1000 + a.intN(9000)
}

func (a *Allocator) pickAdjective() string {
	return capitalize(a.words.Adjectives[a.intN(len(a.words.Adjectives))])
}

func (a *Allocator) pickNoun() string {
	return capitalize(a.words.Nouns[a.intN(len(a.words.Nouns))])
}

func (a *Allocator) pickColor() string {
	return capitalize(a.words.Colors[a.intN(len(a.words.Colors))])
}
