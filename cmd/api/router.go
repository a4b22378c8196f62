package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"libraryapi/internal/book"
	"libraryapi/internal/circulation"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/student"
)

const welcomeText = "Welcome to the library circulation API"

// repositories bundles the storage behind every service.
type repositories struct {
	students student.Repository
	books    book.Repository
	loans    circulation.Repository
	ping     func(ctx context.Context) error
}

// newRouter registers every route on a Go 1.22 pattern mux.
func newRouter(repos repositories, logger *zap.Logger) *http.ServeMux {
	students := student.NewHTTPHandler(student.NewService(repos.students), logger)
	books := book.NewHTTPHandler(book.NewService(repos.books), logger)
	loans := circulation.NewHTTPHandler(circulation.NewService(repos.loans), logger)

	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(welcomeText))
	})
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := repos.ping(ctx); err != nil {
			logger.Warn("store not ready", zap.Error(err))
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /students", students.List)
	router.HandleFunc("POST /students", students.Create)
	router.HandleFunc("GET /students/{id}", students.Get)
	router.HandleFunc("PUT /students/{id}", students.Update)
	router.HandleFunc("DELETE /students/{id}", students.Delete)
	router.HandleFunc("GET /students/{id}/loans", loans.StudentLoans)
	router.HandleFunc("POST /students/{studentId}/borrow/{bookId}", loans.Borrow)
	router.HandleFunc("POST /students/{studentId}/return/{bookId}", loans.Return)

	router.HandleFunc("GET /books", books.List)
	router.HandleFunc("POST /books", books.Create)
	router.HandleFunc("GET /books/{id}", books.Get)
	router.HandleFunc("PUT /books/{id}", books.Update)
	router.HandleFunc("DELETE /books/{id}", books.Delete)
	router.HandleFunc("GET /books/{id}/loans", loans.BookLoans)

	return router
}

// newHandler wraps the router in the middleware chain, outermost first.
func newHandler(ctx context.Context, cfg *config.Config, repos repositories, logger *zap.Logger) http.Handler {
	rateLimiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	return httpx.Chain(newRouter(repos, logger),
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware(logger),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSOrigins),
		rateLimiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)
}
