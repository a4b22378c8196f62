package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

const isbnUniqueConstraint = "books_isbn_key"

var (
	dialect = goqu.Dialect("postgres")
	columns = []any{"id", "title", "author", "isbn"}
)

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

func scanBook(row pgx.Row, b *Book) error {
	return row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN)
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, error) {
	ds := dialect.From("books").
		Select(columns...).
		Where(goqu.C("id").Gt(q.AfterID)).
		Order(goqu.C("id").Asc()).
		Prepared(true)
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build book list: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		var b Book
		if err := scanBook(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	const query = `SELECT id, title, author, isbn FROM books WHERE id = $1`

	var b Book
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanBook(r.db.QueryRow(timeoutCtx, query, id), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const query = `
	INSERT INTO books (title, author, isbn)
	VALUES ($1, $2, $3)
	RETURNING id
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, b.Title, b.Author, b.ISBN).Scan(&b.ID)
	if postgres.IsUniqueViolation(err, isbnUniqueConstraint) {
		return ErrISBNTaken
	}
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, p Patch) (Book, error) {
	record := goqu.Record{"updated_at": goqu.L("now()")}
	if p.Title != nil {
		record["title"] = *p.Title
	}
	if p.Author != nil {
		record["author"] = *p.Author
	}
	if p.ClearISBN {
		record["isbn"] = nil
	} else if p.ISBN != nil {
		record["isbn"] = *p.ISBN
	}

	query, args, err := dialect.Update("books").
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning(columns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, fmt.Errorf("build book update: %w", err)
	}

	var b Book
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanBook(r.db.QueryRow(timeoutCtx, query, args...), &b); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Book{}, ErrNotFound
		case postgres.IsUniqueViolation(err, isbnUniqueConstraint):
			return Book{}, ErrISBNTaken
		}
		return Book{}, err
	}
	return b, nil
}

// Delete locks the book row before checking for an open loan, so a borrow
// racing the delete either lands first or fails its foreign key check.
func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(timeoutCtx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var open bool
		const openLoans = `SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND returned_at IS NULL)`
		if err := tx.QueryRow(timeoutCtx, openLoans, id).Scan(&open); err != nil {
			return err
		}
		if open {
			return ErrHasOpenLoans
		}

		_, err = tx.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
		return err
	})
}
