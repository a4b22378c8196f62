package circulation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*HTTPHandler, fixture) {
	f := newFixture(t)
	return NewHTTPHandler(f.service, zap.NewNop()), f
}

func borrowRequest(studentID, bookID string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/students/"+studentID+"/borrow/"+bookID, nil)
	r.SetPathValue("studentId", studentID)
	r.SetPathValue("bookId", bookID)
	return r
}

func TestHTTPHandler_Borrow(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, f := newTestHandler(t)
		f.passThrough(1)
		f.tx.EXPECT().StudentExists(gomock.Any(), int64(1)).Return(true, nil)
		f.tx.EXPECT().BookExists(gomock.Any(), int64(7)).Return(true, nil)
		f.tx.EXPECT().OpenLoanForBook(gomock.Any(), int64(7)).Return(Loan{}, false, nil)
		f.tx.EXPECT().InsertLoan(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, l *Loan) error {
			l.ID = 12
			return nil
		})

		w := httptest.NewRecorder()
		handler.Borrow(w, borrowRequest("1", "7"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Book borrowed successfully","loan_id":12}`, w.Body.String())
	})

	t.Run("already borrowed", func(t *testing.T) {
		handler, f := newTestHandler(t)
		f.passThrough(1)
		f.tx.EXPECT().StudentExists(gomock.Any(), int64(1)).Return(true, nil)
		f.tx.EXPECT().BookExists(gomock.Any(), int64(7)).Return(true, nil)
		f.tx.EXPECT().OpenLoanForBook(gomock.Any(), int64(7)).Return(Loan{ID: 3, StudentID: 1}, true, nil)

		w := httptest.NewRecorder()
		handler.Borrow(w, borrowRequest("1", "7"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"This book is already borrowed"}`, w.Body.String())
	})

	t.Run("book not found", func(t *testing.T) {
		handler, f := newTestHandler(t)
		f.passThrough(1)
		f.tx.EXPECT().StudentExists(gomock.Any(), int64(1)).Return(true, nil)
		f.tx.EXPECT().BookExists(gomock.Any(), int64(999)).Return(false, nil)

		w := httptest.NewRecorder()
		handler.Borrow(w, borrowRequest("1", "999"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Book not found"}`, w.Body.String())
	})

	t.Run("non numeric ids", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.Borrow(w, borrowRequest("x", "7"))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Student not found"}`, w.Body.String())

		w = httptest.NewRecorder()
		handler.Borrow(w, borrowRequest("1", "y"))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Book not found"}`, w.Body.String())
	})

	t.Run("exhausted retries are a server error", func(t *testing.T) {
		handler, f := newTestHandler(t)
		f.repo.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(ErrTxConflict).Times(defaultMaxAttempts)

		w := httptest.NewRecorder()
		handler.Borrow(w, borrowRequest("1", "7"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Return(t *testing.T) {
	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/students/2/return/7", nil)
		r.SetPathValue("studentId", "2")
		r.SetPathValue("bookId", "7")
		return r
	}

	t.Run("success", func(t *testing.T) {
		handler, f := newTestHandler(t)
		f.passThrough(1)
		f.tx.EXPECT().StudentExists(gomock.Any(), int64(2)).Return(true, nil)
		f.tx.EXPECT().BookExists(gomock.Any(), int64(7)).Return(true, nil)
		f.tx.EXPECT().OpenLoanForBook(gomock.Any(), int64(7)).Return(Loan{ID: 4, StudentID: 2, BookID: 7}, true, nil)
		f.tx.EXPECT().CloseLoan(gomock.Any(), int64(4), gomock.Any()).Return(Loan{ID: 4}, nil)

		w := httptest.NewRecorder()
		handler.Return(w, newReq())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Book returned successfully"}`, w.Body.String())
	})

	t.Run("not borrowed by student", func(t *testing.T) {
		handler, f := newTestHandler(t)
		f.passThrough(1)
		f.tx.EXPECT().StudentExists(gomock.Any(), int64(2)).Return(true, nil)
		f.tx.EXPECT().BookExists(gomock.Any(), int64(7)).Return(true, nil)
		f.tx.EXPECT().OpenLoanForBook(gomock.Any(), int64(7)).Return(Loan{ID: 4, StudentID: 1, BookID: 7}, true, nil)

		w := httptest.NewRecorder()
		handler.Return(w, newReq())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"This book was not borrowed by the student"}`, w.Body.String())
	})
}

func TestHTTPHandler_StudentLoans(t *testing.T) {
	handler, f := newTestHandler(t)
	f.passThrough(1)
	borrowed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	returned := borrowed.Add(time.Hour)
	f.tx.EXPECT().StudentExists(gomock.Any(), int64(1)).Return(true, nil)
	f.tx.EXPECT().LoansByStudent(gomock.Any(), int64(1)).Return([]Loan{
		{ID: 2, StudentID: 1, BookID: 8, BorrowedAt: returned},
		{ID: 1, StudentID: 1, BookID: 7, BorrowedAt: borrowed, ReturnedAt: &returned},
	}, nil)

	r := httptest.NewRequest(http.MethodGet, "/students/1/loans", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	handler.StudentLoans(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"id":2,"student_id":1,"book_id":8,"borrowed_at":"2024-01-02T04:04:05Z","returned_at":null},
		{"id":1,"student_id":1,"book_id":7,"borrowed_at":"2024-01-02T03:04:05Z","returned_at":"2024-01-02T04:04:05Z"}
	]`, w.Body.String())
}

func TestHTTPHandler_BookLoans(t *testing.T) {
	handler, f := newTestHandler(t)
	f.passThrough(1)
	f.tx.EXPECT().BookExists(gomock.Any(), int64(3)).Return(false, nil)

	r := httptest.NewRequest(http.MethodGet, "/books/3/loans", nil)
	r.SetPathValue("id", "3")
	w := httptest.NewRecorder()
	handler.BookLoans(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Book not found"}`, w.Body.String())
}
