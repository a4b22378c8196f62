package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

const (
	openLoanIndex     = "loans_one_open_per_book"
	studentForeignKey = "loans_student_id_fkey"
	bookForeignKey    = "loans_book_id_fkey"
	loanSelectColumns = "id, student_id, book_id, borrowed_at, returned_at"
)

var (
	dialect     = goqu.Dialect("postgres")
	loanColumns = []any{"id", "student_id", "book_id", "borrowed_at", "returned_at"}
)

// PostgresRepo runs circulation transactions at SERIALIZABLE isolation.
type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginTxFunc(timeoutCtx, r.db, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(timeoutCtx, pgTx{tx: tx})
	})
	if postgres.IsTxConflict(err) {
		return fmt.Errorf("%w: %w", ErrTxConflict, err)
	}
	return err
}

type pgTx struct {
	tx pgx.Tx
}

func scanLoan(row pgx.Row, l *Loan) error {
	return row.Scan(&l.ID, &l.StudentID, &l.BookID, &l.BorrowedAt, &l.ReturnedAt)
}

// StudentExists takes a key-share lock so the student cannot be deleted
// before the transaction ends.
func (t pgTx) StudentExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM students WHERE id = $1 FOR KEY SHARE`, id)
}

func (t pgTx) BookExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM books WHERE id = $1 FOR KEY SHARE`, id)
}

func (t pgTx) exists(ctx context.Context, query string, id int64) (bool, error) {
	var one int
	err := t.tx.QueryRow(ctx, query, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t pgTx) OpenLoanForBook(ctx context.Context, bookID int64) (Loan, bool, error) {
	query := `SELECT ` + loanSelectColumns + ` FROM loans WHERE book_id = $1 AND returned_at IS NULL FOR UPDATE`

	var l Loan
	err := scanLoan(t.tx.QueryRow(ctx, query, bookID), &l)
	if errors.Is(err, pgx.ErrNoRows) {
		return Loan{}, false, nil
	}
	if err != nil {
		return Loan{}, false, err
	}
	return l, true, nil
}

func (t pgTx) InsertLoan(ctx context.Context, l *Loan) error {
	const query = `
	INSERT INTO loans (student_id, book_id, borrowed_at)
	VALUES ($1, $2, $3)
	RETURNING id, borrowed_at
	`
	err := t.tx.QueryRow(ctx, query, l.StudentID, l.BookID, l.BorrowedAt).Scan(&l.ID, &l.BorrowedAt)
	switch {
	case postgres.IsUniqueViolation(err, openLoanIndex):
		return ErrAlreadyBorrowed
	case postgres.IsForeignKeyViolation(err, studentForeignKey):
		return ErrStudentNotFound
	case postgres.IsForeignKeyViolation(err, bookForeignKey):
		return ErrBookNotFound
	}
	return err
}

func (t pgTx) CloseLoan(ctx context.Context, loanID int64, at time.Time) (Loan, error) {
	query := `
	UPDATE loans SET returned_at = GREATEST($2::timestamptz, borrowed_at)
	WHERE id = $1 AND returned_at IS NULL
	RETURNING ` + loanSelectColumns

	var l Loan
	err := scanLoan(t.tx.QueryRow(ctx, query, loanID, at), &l)
	if errors.Is(err, pgx.ErrNoRows) {
		return Loan{}, ErrNoOpenLoan
	}
	return l, err
}

func (t pgTx) LoansByStudent(ctx context.Context, studentID int64) ([]Loan, error) {
	return t.history(ctx, goqu.C("student_id").Eq(studentID))
}

func (t pgTx) LoansByBook(ctx context.Context, bookID int64) ([]Loan, error) {
	return t.history(ctx, goqu.C("book_id").Eq(bookID))
}

func (t pgTx) history(ctx context.Context, filter exp.Expression) ([]Loan, error) {
	query, args, err := dialect.From("loans").
		Select(loanColumns...).
		Where(filter).
		Order(goqu.C("borrowed_at").Desc(), goqu.C("id").Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan history: %w", err)
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Loan{}
	for rows.Next() {
		var l Loan
		if err := scanLoan(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
