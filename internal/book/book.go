package book

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound     = errors.New("book not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrISBNTaken is returned when another book already carries the ISBN.
	ErrISBNTaken = errors.New("isbn already exists")
	// ErrHasOpenLoans is returned when deleting a book that is currently borrowed.
	ErrHasOpenLoans = errors.New("book is currently borrowed")
)

// Book represents a single physical copy held by the library.
type Book struct {
	ID     int64
	Title  string
	Author string
	ISBN   *string
}

// NewBook holds the fields accepted when cataloguing a book.
type NewBook struct {
	Title  string
	Author string
	ISBN   *string
}

// Patch lists the fields to change. ClearISBN removes the ISBN.
type Patch struct {
	Title     *string
	Author    *string
	ISBN      *string
	ClearISBN bool
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.ISBN == nil && !p.ClearISBN
}

// Apply returns b with the patch applied.
func (p Patch) Apply(b Book) Book {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.ClearISBN {
		b.ISBN = nil
	} else if p.ISBN != nil {
		isbn := *p.ISBN
		b.ISBN = &isbn
	}
	return b
}

// Query pages through books ordered by id.
type Query struct {
	Limit   int
	AfterID int64
}

// NormalizeISBN strips dashes and spaces and upper-cases the ISBN-10 check digit.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	return strings.ToUpper(isbn)
}
