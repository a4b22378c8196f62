package circulation

import (
	"context"
	"errors"
	"time"
)

// Service borrows and returns books.
type Service struct {
	repo  Repository
	now   func() time.Time
	retry []RetryOption
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used to stamp loans.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRetryOptions tunes the retry of conflicting transactions.
func WithRetryOptions(opts ...RetryOption) Option {
	return func(s *Service) { s.retry = append(s.retry, opts...) }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now: func() time.Time {
			// timestamptz keeps microseconds
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Borrow opens a loan of bookID for studentID. It fails with
// ErrStudentNotFound, ErrBookNotFound or ErrAlreadyBorrowed, checked in
// that order.
func (s *Service) Borrow(ctx context.Context, studentID, bookID int64) (Loan, error) {
	var loan Loan
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireParties(ctx, tx, studentID, bookID); err != nil {
			return err
		}

		_, open, err := tx.OpenLoanForBook(ctx, bookID)
		if err != nil {
			return err
		}
		if open {
			return ErrAlreadyBorrowed
		}

		loan = Loan{StudentID: studentID, BookID: bookID, BorrowedAt: s.now()}
		return tx.InsertLoan(ctx, &loan)
	})
	if err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// Return closes the open loan of bookID held by studentID. A loan held by
// another student is left untouched and ErrNotBorrowedByStudent is returned.
func (s *Service) Return(ctx context.Context, studentID, bookID int64) (Loan, error) {
	var loan Loan
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireParties(ctx, tx, studentID, bookID); err != nil {
			return err
		}

		open, found, err := tx.OpenLoanForBook(ctx, bookID)
		if err != nil {
			return err
		}
		if !found || open.StudentID != studentID {
			return ErrNotBorrowedByStudent
		}

		loan, err = tx.CloseLoan(ctx, open.ID, s.now())
		if errors.Is(err, ErrNoOpenLoan) {
			return ErrNotBorrowedByStudent
		}
		return err
	})
	if err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// ListStudentLoans returns the student's loan history, newest first.
func (s *Service) ListStudentLoans(ctx context.Context, studentID int64) ([]Loan, error) {
	var loans []Loan
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.StudentExists(ctx, studentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStudentNotFound
		}
		loans, err = tx.LoansByStudent(ctx, studentID)
		return err
	})
	return loans, err
}

// ListBookLoans returns the book's loan history, newest first.
func (s *Service) ListBookLoans(ctx context.Context, bookID int64) ([]Loan, error) {
	var loans []Loan
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.BookExists(ctx, bookID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBookNotFound
		}
		loans, err = tx.LoansByBook(ctx, bookID)
		return err
	})
	return loans, err
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, fn)
	}, s.retry...)
}

func requireParties(ctx context.Context, tx Tx, studentID, bookID int64) error {
	ok, err := tx.StudentExists(ctx, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStudentNotFound
	}

	ok, err = tx.BookExists(ctx, bookID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBookNotFound
	}
	return nil
}
