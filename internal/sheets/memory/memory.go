// Package memory is an in-memory board adapter used in tests and local
// development, where no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "tesoreria/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []ports.BoardRow
}

var _ ports.BoardWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row ports.BoardRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []ports.BoardRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.BoardRow(nil), s.rows...)
}
