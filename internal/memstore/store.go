// Package memstore keeps students, books and loans in process memory. It
// implements the same repository ports as the Postgres repositories and is
// meant for local runs and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"libraryapi/internal/book"
	"libraryapi/internal/circulation"
	"libraryapi/internal/student"
)

// Store holds every record behind one mutex.
type Store struct {
	mu sync.Mutex

	students map[int64]student.Student
	books    map[int64]book.Book
	loans    map[int64]circulation.Loan

	nextStudentID int64
	nextBookID    int64
	nextLoanID    int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		students: make(map[int64]student.Student),
		books:    make(map[int64]book.Book),
		loans:    make(map[int64]circulation.Loan),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ping reports whether the store can serve requests.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Students() *StudentRepo { return &StudentRepo{s: s} }
func (s *Store) Books() *BookRepo       { return &BookRepo{s: s} }
func (s *Store) Loans() *LoanRepo       { return &LoanRepo{s: s} }

// openLoanOf returns the id of the open loan of the book. Callers hold mu.
func (s *Store) openLoanOf(bookID int64) (int64, bool) {
	for id, l := range s.loans {
		if l.BookID == bookID && l.Open() {
			return id, true
		}
	}
	return 0, false
}

// dropLoans removes every loan for which match is true. Callers hold mu.
func (s *Store) dropLoans(match func(circulation.Loan) bool) {
	for id, l := range s.loans {
		if match(l) {
			delete(s.loans, id)
		}
	}
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
