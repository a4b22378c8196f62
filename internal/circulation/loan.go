// Package circulation owns the borrow and return lifecycle of loans.
package circulation

import (
	"errors"
	"time"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrBookNotFound    = errors.New("book not found")
	// ErrAlreadyBorrowed is returned when the book has an open loan, whoever holds it.
	ErrAlreadyBorrowed = errors.New("book is already borrowed")
	// ErrNotBorrowedByStudent is returned when the book has no open loan for the student.
	ErrNotBorrowedByStudent = errors.New("book was not borrowed by the student")
	// ErrNoOpenLoan is returned by Tx.CloseLoan when the loan was closed concurrently.
	ErrNoOpenLoan = errors.New("loan is not open")
	// ErrTxConflict marks a transaction aborted by a concurrent one. It is safe to retry.
	ErrTxConflict = errors.New("transaction conflict")
)

// Loan records one borrowing of a book by a student. ReturnedAt is nil while
// the loan is open and is set exactly once.
type Loan struct {
	ID         int64
	StudentID  int64
	BookID     int64
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// Open reports whether the book has not been returned yet.
func (l Loan) Open() bool {
	return l.ReturnedAt == nil
}
