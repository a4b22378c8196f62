package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"libraryapi/internal/httpx"
)

// NextCursorHeader carries the cursor of the following page when one may exist.
const NextCursorHeader = "X-Next-Cursor"

type HTTPHandler struct {
	service *Service
	logger  *zap.Logger
}

func NewHTTPHandler(service *Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

type bookResponse struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	ISBN   *string `json:"isbn"`
}

func toResponse(b Book) bookResponse {
	return bookResponse{ID: b.ID, Title: b.Title, Author: b.Author, ISBN: b.ISBN}
}

type createReq struct {
	Title  string  `json:"title" validate:"required,max=500"`
	Author string  `json:"author" validate:"max=300"`
	ISBN   *string `json:"isbn" validate:"omitempty,isbn"`
}

// List handles GET /books. Without a limit every book is returned; with
// ?limit=N the response is one page and X-Next-Cursor points at the next.
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var q Query
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.JSONError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", MaxPageSize))
			return
		}
		q.Limit = limit
	}
	cursor, err := DecodeCursor(query.Get("cursor"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}
	q.AfterID = cursor.AfterID

	books, err := h.service.List(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if q.Limit > 0 && len(books) == q.Limit {
		w.Header().Set(NextCursorHeader, EncodeCursor(CursorData{AfterID: books[len(books)-1].ID}))
	}

	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toResponse(b))
	}
	httpx.JSONSuccess(w, out)
}

// Get handles GET /books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, toResponse(b))
}

// Create handles POST /books
// @Summary Add a book
// @Tags books
// @Accept json
// @Produce json
// @Param request body createReq true "Book"
// @Success 201 {object} httpx.MessageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid data, title is required")
		return
	}
	req.Title = strings.TrimSpace(req.Title)

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONValidationError(w, details)
		return
	}

	created, err := h.service.Create(r.Context(), NewBook{Title: req.Title, Author: req.Author, ISBN: req.ISBN})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, "Book added successfully", created.ID)
}

// Update handles PUT /books/{id}; "isbn": null removes the ISBN.
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "No data provided")
		return
	}

	var p Patch
	for _, field := range []struct {
		name string
		dst  **string
	}{{"title", &p.Title}, {"author", &p.Author}} {
		raw, present := body[field.name]
		if !present {
			continue
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil || v == nil {
			httpx.JSONError(w, http.StatusBadRequest, field.name+" must be a string")
			return
		}
		*field.dst = v
	}
	if raw, present := body["isbn"]; present {
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "isbn must be a string")
			return
		}
		if v == nil {
			p.ClearISBN = true
		} else {
			if detail := httpx.ValidateVar("isbn", *v, "isbn"); detail != nil {
				httpx.JSONError(w, http.StatusBadRequest, detail.Message)
				return
			}
			p.ISBN = v
		}
	}
	if p.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "No data provided")
		return
	}

	if _, err := h.service.Update(r.Context(), id, p); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, "Book updated successfully")
}

// Delete handles DELETE /books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, "Book deleted successfully")
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
	case errors.Is(err, ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "))
	case errors.Is(err, ErrISBNTaken):
		httpx.JSONError(w, http.StatusBadRequest, "ISBN already exists")
	case errors.Is(err, ErrHasOpenLoans):
		httpx.JSONError(w, http.StatusBadRequest, "Book is currently borrowed")
	default:
		httpx.InternalError(w, r, h.logger, err)
	}
}
