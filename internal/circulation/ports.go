package circulation

import (
	"context"
	"time"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=circulation

// Repository runs circulation work atomically.
type Repository interface {
	// WithinTx runs fn in a single transaction. Writes made through tx are
	// discarded when fn returns an error. Conflicts with concurrent
	// transactions surface as ErrTxConflict.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the store available inside WithinTx.
type Tx interface {
	StudentExists(ctx context.Context, id int64) (bool, error)
	BookExists(ctx context.Context, id int64) (bool, error)
	// OpenLoanForBook returns the open loan of the book, if any, and holds it
	// against concurrent changes until the transaction ends.
	OpenLoanForBook(ctx context.Context, bookID int64) (Loan, bool, error)
	// InsertLoan stores l as an open loan and fills in its ID.
	InsertLoan(ctx context.Context, l *Loan) error
	// CloseLoan sets the return time of an open loan, never earlier than its
	// borrow time. It fails with ErrNoOpenLoan if the loan is already closed.
	CloseLoan(ctx context.Context, loanID int64, at time.Time) (Loan, error)
	// LoansByStudent and LoansByBook return loan history, newest first.
	LoansByStudent(ctx context.Context, studentID int64) ([]Loan, error)
	LoansByBook(ctx context.Context, bookID int64) ([]Loan, error)
}
