// Package catalog defines the source of candidate printings used by the
// resolver, plus an in-memory implementation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
)

// Client returns every known physical printing for a card name.
//
// Unknown names return an empty slice and a nil error. Failures to reach
// the backing store are reported as *UnavailableError.
type Client interface {
	Lookup(ctx context.Context, name string) ([]printing.Printing, error)
	LookupTokens(ctx context.Context, name string) ([]printing.Printing, error)
}

// UnavailableError is returned when the catalog could not be queried.
type UnavailableError struct {
	Name string
	Err  error
}

// Error implements the error interface for UnavailableError.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable looking up %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying transport or storage error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable returns true if err is or wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Memory is a static Client backed by a fixed set of printings.
type Memory struct {
	mu     sync.RWMutex
	cards  map[string][]printing.Printing
	tokens map[string][]printing.Printing
}

// NewMemory creates a Memory catalog holding printings. Token printings are
// only returned by LookupTokens.
func NewMemory(printings ...printing.Printing) *Memory {
	m := &Memory{
		cards:  make(map[string][]printing.Printing),
		tokens: make(map[string][]printing.Printing),
	}
	m.Add(printings...)
	return m
}

// Add indexes printings under their full name and each face name.
func (m *Memory) Add(printings ...printing.Printing) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range printings {
		index := m.cards
		if p.IsToken {
			index = m.tokens
		}

		seen := make(map[string]bool)
		for _, name := range append([]string{p.Name}, p.FaceNames...) {
			key := printing.Key(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			index[key] = append(index[key], p)
		}
	}
}

// Lookup implements Client.
func (m *Memory) Lookup(ctx context.Context, name string) ([]printing.Printing, error) {
	return m.lookup(ctx, m.cards, name)
}

// LookupTokens implements Client.
func (m *Memory) LookupTokens(ctx context.Context, name string) ([]printing.Printing, error) {
	return m.lookup(ctx, m.tokens, name)
}

func (m *Memory) lookup(ctx context.Context, index map[string][]printing.Printing, name string) ([]printing.Printing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	found := index[printing.Key(name)]
	return append([]printing.Printing{}, found...), nil
}

// Compile-time check.
var _ Client = (*Memory)(nil)

