package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestJSONSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	JSONSuccess(w, []map[string]any{{"id": 1}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"id":1}]`, w.Body.String())
}

func TestJSONCreated(t *testing.T) {
	w := httptest.NewRecorder()

	JSONCreated(w, "Student added successfully", 7)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"Student added successfully","id":7}`, w.Body.String())
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()

	JSONError(w, http.StatusBadRequest, "This book is already borrowed")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Len(t, body, 1)
	assert.Equal(t, "This book is already borrowed", body["error"])
}

func TestJSONValidationError(t *testing.T) {
	w := httptest.NewRecorder()

	JSONValidationError(w, []ErrorDetail{
		{Field: "email", Message: "email is required"},
		{Field: "last_name", Message: "last_name is required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"email is required; last_name is required"}`, w.Body.String())
}

func TestInternalError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/students/1/borrow/2", nil)
	r = r.WithContext(ContextWithRequestID(r.Context(), "req-500"))

	InternalError(w, r, zap.New(core), errors.New("connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-500", logs.All()[0].ContextMap()["request_id"])
}
