package student

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/testutil"
)

func TestPostgresRepo(t *testing.T) {
	pool := testutil.StartPostgres(t)
	testutil.ResetTables(t, pool)
	ctx := context.Background()
	repo := NewPostgresRepo(pool, 5*time.Second)

	born := time.Date(2001, 9, 1, 0, 0, 0, 0, time.UTC)
	ada := Student{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", BirthDate: &born}
	require.NoError(t, repo.Create(ctx, &ada))
	assert.NotZero(t, ada.ID)

	dup := Student{Email: "ada@example.com", FirstName: "X", LastName: "Y"}
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrEmailTaken)

	got, err := repo.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, "2001-09-01", got.BirthDate.Format(DateLayout))

	last := "Byron"
	updated, err := repo.Update(ctx, ada.ID, Patch{LastName: &last, ClearBirthDate: true})
	require.NoError(t, err)
	assert.Equal(t, "Byron", updated.LastName)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Nil(t, updated.BirthDate)

	_, err = repo.Update(ctx, 999, Patch{LastName: &last})
	assert.ErrorIs(t, err, ErrNotFound)

	var bookID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO books (title) VALUES ('Dune') RETURNING id`).Scan(&bookID))
	_, err = pool.Exec(ctx, `INSERT INTO loans (student_id, book_id, borrowed_at) VALUES ($1, $2, now())`, ada.ID, bookID)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, ada.ID), ErrHasOpenLoans)

	_, err = pool.Exec(ctx, `UPDATE loans SET returned_at = now() WHERE student_id = $1`, ada.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, ada.ID))
	assert.ErrorIs(t, repo.Delete(ctx, ada.ID), ErrNotFound)

	var history int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM loans WHERE book_id = $1`, bookID).Scan(&history))
	assert.Zero(t, history)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
