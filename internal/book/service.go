package book

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPageSize caps a single page of the book listing.
const MaxPageSize = 100

var validate = validator.New()

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns books matching the query.
func (s *Service) List(ctx context.Context, q Query) ([]Book, error) {
	if q.Limit < 0 || q.Limit > MaxPageSize {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxPageSize)
	}
	return s.repo.List(ctx, q)
}

// Get returns a book by its id.
func (s *Service) Get(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in NewBook) (Book, error) {
	b := Book{
		Title:  strings.TrimSpace(in.Title),
		Author: strings.TrimSpace(in.Author),
	}
	if b.Title == "" {
		return Book{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.ISBN != nil {
		isbn, err := checkISBN(*in.ISBN)
		if err != nil {
			return Book{}, err
		}
		b.ISBN = &isbn
	}

	if err := s.repo.Create(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, id int64, p Patch) (Book, error) {
	if p.Empty() {
		return Book{}, fmt.Errorf("%w: no data provided", ErrInvalidInput)
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Book{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		p.Title = &title
	}
	if p.Author != nil {
		author := strings.TrimSpace(*p.Author)
		p.Author = &author
	}
	if p.ISBN != nil && !p.ClearISBN {
		isbn, err := checkISBN(*p.ISBN)
		if err != nil {
			return Book{}, err
		}
		p.ISBN = &isbn
	}
	return s.repo.Update(ctx, id, p)
}

// Delete removes a book that is not currently borrowed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// checkISBN normalizes isbn and verifies its ISBN-10 or ISBN-13 check digit.
func checkISBN(isbn string) (string, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return "", fmt.Errorf("%w: isbn must not be empty", ErrInvalidInput)
	}
	if err := validate.Var(isbn, "isbn10|isbn13"); err != nil {
		return "", fmt.Errorf("%w: isbn must be a valid ISBN-10 or ISBN-13", ErrInvalidInput)
	}
	return isbn, nil
}
