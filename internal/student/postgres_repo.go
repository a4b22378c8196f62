package student

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

const emailUniqueConstraint = "students_email_key"

var columns = []any{"id", "email", "first_name", "last_name", "birth_date", "created_at", "updated_at"}

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

func scanStudent(row pgx.Row, s *Student) error {
	return row.Scan(&s.ID, &s.Email, &s.FirstName, &s.LastName, &s.BirthDate, &s.CreatedAt, &s.UpdatedAt)
}

func (r *PostgresRepo) List(ctx context.Context) ([]Student, error) {
	const query = `
	SELECT id, email, first_name, last_name, birth_date, created_at, updated_at
	FROM students
	ORDER BY id
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Student{}
	for rows.Next() {
		var s Student
		if err := scanStudent(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Student, error) {
	const query = `
	SELECT id, email, first_name, last_name, birth_date, created_at, updated_at
	FROM students WHERE id = $1
	`
	var s Student
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanStudent(r.db.QueryRow(timeoutCtx, query, id), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	return s, nil
}

func (r *PostgresRepo) Create(ctx context.Context, s *Student) error {
	const query = `
	INSERT INTO students (email, first_name, last_name, birth_date)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, s.Email, s.FirstName, s.LastName, s.BirthDate).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if postgres.IsUniqueViolation(err, emailUniqueConstraint) {
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, p Patch) (Student, error) {
	record := goqu.Record{"updated_at": goqu.L("now()")}
	if p.Email != nil {
		record["email"] = *p.Email
	}
	if p.FirstName != nil {
		record["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		record["last_name"] = *p.LastName
	}
	if p.ClearBirthDate {
		record["birth_date"] = nil
	} else if p.BirthDate != nil {
		record["birth_date"] = *p.BirthDate
	}

	query, args, err := goqu.Dialect("postgres").
		Update("students").
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning(columns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Student{}, fmt.Errorf("build student update: %w", err)
	}

	var s Student
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanStudent(r.db.QueryRow(timeoutCtx, query, args...), &s); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Student{}, ErrNotFound
		case postgres.IsUniqueViolation(err, emailUniqueConstraint):
			return Student{}, ErrEmailTaken
		}
		return Student{}, err
	}
	return s, nil
}

// Delete locks the student row so a concurrent borrow either commits first
// and is seen by the open-loan check, or fails its foreign key check after.
func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(timeoutCtx, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var open bool
		const openLoans = `SELECT EXISTS (SELECT 1 FROM loans WHERE student_id = $1 AND returned_at IS NULL)`
		if err := tx.QueryRow(timeoutCtx, openLoans, id).Scan(&open); err != nil {
			return err
		}
		if open {
			return ErrHasOpenLoans
		}

		_, err = tx.Exec(timeoutCtx, `DELETE FROM students WHERE id = $1`, id)
		return err
	})
}
