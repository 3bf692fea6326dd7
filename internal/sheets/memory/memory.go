// Package memory holds an in-memory ledger used in tests and local
// development when no spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"smartcart/internal/core"
)

type Entry struct {
	List  core.ShoppingList
	Items []core.ShoppingItem
}

type Store struct {
	mu      sync.Mutex
	entries []Entry

	// FailNext makes the next append fail, for exercising error paths.
	FailNext bool
}

func New() *Store {
	return &Store{}
}

// AppendList stores the list and returns a synthetic row reference.
func (s *Store) AppendList(_ context.Context, list core.ShoppingList, items []core.ShoppingItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return "", errors.New("ledger unavailable")
	}
	s.entries = append(s.entries, Entry{List: list, Items: append([]core.ShoppingItem(nil), items...)})
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}
