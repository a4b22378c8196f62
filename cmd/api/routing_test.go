package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libraryapi/internal/config"
	"libraryapi/internal/memstore"
	"libraryapi/internal/testutil"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := memstore.New()
	repos := repositories{
		students: store.Students(),
		books:    store.Books(),
		loans:    store.Loans(),
		ping:     store.Ping,
	}
	cfg := &config.Config{
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		MaxBodyBytes:   1024,
		Env:            "development",
	}
	return newHandler(ctx, cfg, repos, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any) testutil.RecordResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, testutil.NewRequest(method, path, body))
	return testutil.RecordHTTPResponse(w)
}

func TestRouting_Probes(t *testing.T) {
	h := newTestServer(t)

	res := do(t, h, http.MethodGet, "/", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)
	assert.Equal(t, welcomeText, string(res.Raw))

	res = do(t, h, http.MethodGet, "/healthz", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)

	res = do(t, h, http.MethodGet, "/readyz", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)
	assert.NotEmpty(t, res.Header.Get("X-Request-Id"))

	res = do(t, h, http.MethodGet, "/nope", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusNotFound)
}

func TestRouting_BorrowReturnCycle(t *testing.T) {
	h := newTestServer(t)

	res := do(t, h, http.MethodPost, "/students", map[string]any{
		"email": "a@x.com", "first_name": "A", "last_name": "B",
	})
	require.Equal(t, http.StatusCreated, res.Code)
	testutil.AssertResponseBody(t, res.Body, "message", "Student added successfully")
	studentID := int64(res.Body["id"].(float64))

	res = do(t, h, http.MethodPost, "/books", map[string]any{"title": "Book 7"})
	require.Equal(t, http.StatusCreated, res.Code)
	bookID := int64(res.Body["id"].(float64))

	borrow := fmt.Sprintf("/students/%d/borrow/%d", studentID, bookID)
	giveBack := fmt.Sprintf("/students/%d/return/%d", studentID, bookID)

	res = do(t, h, http.MethodPost, borrow, nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)
	testutil.AssertResponseBody(t, res.Body, "message", "Book borrowed successfully")
	assert.Contains(t, res.Body, "loan_id")

	res = do(t, h, http.MethodPost, borrow, nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusBadRequest)
	testutil.AssertResponseBody(t, res.Body, "error", "This book is already borrowed")

	res = do(t, h, http.MethodDelete, fmt.Sprintf("/books/%d", bookID), nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusBadRequest)

	res = do(t, h, http.MethodPost, giveBack, nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)
	testutil.AssertResponseBody(t, res.Body, "message", "Book returned successfully")

	res = do(t, h, http.MethodPost, giveBack, nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusBadRequest)
	testutil.AssertResponseBody(t, res.Body, "error", "This book was not borrowed by the student")

	res = do(t, h, http.MethodGet, fmt.Sprintf("/students/%d/loans", studentID), nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)
	assert.True(t, strings.HasPrefix(string(res.Raw), "["))
	assert.Contains(t, string(res.Raw), `"returned_at":"`)
}

func TestRouting_MissingRecords(t *testing.T) {
	h := newTestServer(t)

	res := do(t, h, http.MethodPost, "/students", map[string]any{
		"email": "a@x.com", "first_name": "A", "last_name": "B",
	})
	require.Equal(t, http.StatusCreated, res.Code)

	res = do(t, h, http.MethodPost, "/students/1/borrow/999", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusNotFound)
	testutil.AssertResponseBody(t, res.Body, "error", "Book not found")

	res = do(t, h, http.MethodPost, "/students/42/borrow/999", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusNotFound)
	testutil.AssertResponseBody(t, res.Body, "error", "Student not found")

	res = do(t, h, http.MethodGet, "/students/abc", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusNotFound)
	testutil.AssertResponseBody(t, res.Body, "error", "Student not found")

	res = do(t, h, http.MethodGet, "/books/7/loans", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusNotFound)
}

func TestRouting_MethodAndSize(t *testing.T) {
	h := newTestServer(t)

	res := do(t, h, http.MethodPatch, "/students/1", map[string]any{"first_name": "x"})
	testutil.AssertResponseCode(t, res.Code, http.StatusMethodNotAllowed)

	res = do(t, h, http.MethodGet, "/students/1/borrow/2", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusMethodNotAllowed)

	res = do(t, h, http.MethodPost, "/books", map[string]any{"title": strings.Repeat("x", 2048)})
	testutil.AssertResponseCode(t, res.Code, http.StatusRequestEntityTooLarge)
}

func TestRouting_StudentUpdate(t *testing.T) {
	h := newTestServer(t)

	res := do(t, h, http.MethodPost, "/students", map[string]any{
		"email": "a@x.com", "first_name": "A", "last_name": "B", "birth_date": "2000-02-29",
	})
	require.Equal(t, http.StatusCreated, res.Code)

	res = do(t, h, http.MethodPut, "/students/1", map[string]any{"birth_date": nil})
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)

	res = do(t, h, http.MethodGet, "/students/1", nil)
	testutil.AssertResponseCode(t, res.Code, http.StatusOK)
	assert.Nil(t, res.Body["birth_date"])
	assert.Equal(t, "B", res.Body["last_name"])

	res = do(t, h, http.MethodPut, "/students/1", map[string]any{})
	testutil.AssertResponseCode(t, res.Code, http.StatusBadRequest)
	testutil.AssertResponseBody(t, res.Body, "error", "No data provided")

	res = do(t, h, http.MethodPut, "/students/999", map[string]any{})
	testutil.AssertResponseCode(t, res.Code, http.StatusNotFound)
	testutil.AssertResponseBody(t, res.Body, "error", "Student not found")
}
