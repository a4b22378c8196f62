package circulation

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *zap.Logger
}

func NewHTTPHandler(service *Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

type loanResponse struct {
	ID         int64      `json:"id"`
	StudentID  int64      `json:"student_id"`
	BookID     int64      `json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at"`
}

func toResponse(l Loan) loanResponse {
	return loanResponse{
		ID:         l.ID,
		StudentID:  l.StudentID,
		BookID:     l.BookID,
		BorrowedAt: l.BorrowedAt,
		ReturnedAt: l.ReturnedAt,
	}
}

// Borrow handles POST /students/{studentId}/borrow/{bookId}
// @Summary Borrow a book
// @Tags circulation
// @Produce json
// @Param studentId path int true "Student ID"
// @Param bookId path int true "Book ID"
// @Success 200 {object} httpx.MessageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /students/{studentId}/borrow/{bookId} [post]
func (h *HTTPHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	studentID, bookID, ok := h.parties(w, r)
	if !ok {
		return
	}

	loan, err := h.service.Borrow(r.Context(), studentID, bookID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.MessageResponse{Message: "Book borrowed successfully", LoanID: &loan.ID})
}

// Return handles POST /students/{studentId}/return/{bookId}
// @Summary Return a borrowed book
// @Tags circulation
// @Produce json
// @Param studentId path int true "Student ID"
// @Param bookId path int true "Book ID"
// @Success 200 {object} httpx.MessageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /students/{studentId}/return/{bookId} [post]
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	studentID, bookID, ok := h.parties(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Return(r.Context(), studentID, bookID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, "Book returned successfully")
}

// StudentLoans handles GET /students/{id}/loans
func (h *HTTPHandler) StudentLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Student not found")
		return
	}

	loans, err := h.service.ListStudentLoans(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeLoans(w, loans)
}

// BookLoans handles GET /books/{id}/loans
func (h *HTTPHandler) BookLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}

	loans, err := h.service.ListBookLoans(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeLoans(w, loans)
}

func (h *HTTPHandler) writeLoans(w http.ResponseWriter, loans []Loan) {
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toResponse(l))
	}
	httpx.JSONSuccess(w, out)
}

func (h *HTTPHandler) parties(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	studentID, ok := httpx.PathID(r, "studentId")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Student not found")
		return 0, 0, false
	}
	bookID, ok := httpx.PathID(r, "bookId")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
		return 0, 0, false
	}
	return studentID, bookID, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		httpx.JSONError(w, http.StatusNotFound, "Student not found")
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, http.StatusNotFound, "Book not found")
	case errors.Is(err, ErrAlreadyBorrowed):
		httpx.JSONError(w, http.StatusBadRequest, "This book is already borrowed")
	case errors.Is(err, ErrNotBorrowedByStudent):
		httpx.JSONError(w, http.StatusBadRequest, "This book was not borrowed by the student")
	default:
		httpx.InternalError(w, r, h.logger, err)
	}
}
