package memstore

import (
	"context"
	"sort"
	"time"

	"libraryapi/internal/circulation"
)

// LoanRepo runs circulation transactions one at a time.
type LoanRepo struct {
	s *Store
}

// WithinTx holds the store lock for the whole of fn and rolls back the
// loans written through tx when fn fails.
func (r *LoanRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &memTx{s: r.s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) StudentExists(ctx context.Context, id int64) (bool, error) {
	_, ok := t.s.students[id]
	return ok, nil
}

func (t *memTx) BookExists(ctx context.Context, id int64) (bool, error) {
	_, ok := t.s.books[id]
	return ok, nil
}

func (t *memTx) OpenLoanForBook(ctx context.Context, bookID int64) (circulation.Loan, bool, error) {
	id, ok := t.s.openLoanOf(bookID)
	if !ok {
		return circulation.Loan{}, false, nil
	}
	return t.s.loans[id], true, nil
}

func (t *memTx) InsertLoan(ctx context.Context, l *circulation.Loan) error {
	if _, ok := t.s.students[l.StudentID]; !ok {
		return circulation.ErrStudentNotFound
	}
	if _, ok := t.s.books[l.BookID]; !ok {
		return circulation.ErrBookNotFound
	}
	if _, open := t.s.openLoanOf(l.BookID); open {
		return circulation.ErrAlreadyBorrowed
	}

	prevID := t.s.nextLoanID
	t.s.nextLoanID++
	l.ID = t.s.nextLoanID
	l.ReturnedAt = nil
	t.s.loans[l.ID] = *l

	id := l.ID
	t.undo = append(t.undo, func() {
		delete(t.s.loans, id)
		t.s.nextLoanID = prevID
	})
	return nil
}

func (t *memTx) CloseLoan(ctx context.Context, loanID int64, at time.Time) (circulation.Loan, error) {
	l, ok := t.s.loans[loanID]
	if !ok || !l.Open() {
		return circulation.Loan{}, circulation.ErrNoOpenLoan
	}

	prev := l
	if at.Before(l.BorrowedAt) {
		at = l.BorrowedAt
	}
	l.ReturnedAt = &at
	t.s.loans[loanID] = l

	t.undo = append(t.undo, func() { t.s.loans[loanID] = prev })
	return l, nil
}

func (t *memTx) LoansByStudent(ctx context.Context, studentID int64) ([]circulation.Loan, error) {
	return t.history(func(l circulation.Loan) bool { return l.StudentID == studentID }), nil
}

func (t *memTx) LoansByBook(ctx context.Context, bookID int64) ([]circulation.Loan, error) {
	return t.history(func(l circulation.Loan) bool { return l.BookID == bookID }), nil
}

func (t *memTx) history(match func(circulation.Loan) bool) []circulation.Loan {
	out := []circulation.Loan{}
	for _, l := range t.s.loans {
		if match(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowedAt.Equal(out[j].BorrowedAt) {
			return out[i].BorrowedAt.After(out[j].BorrowedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
