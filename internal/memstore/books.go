package memstore

import (
	"context"

	"libraryapi/internal/book"
	"libraryapi/internal/circulation"
)

type BookRepo struct {
	s *Store
}

func (r *BookRepo) List(ctx context.Context, q book.Query) ([]book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []book.Book{}
	for _, id := range sortedIDs(r.s.books) {
		if id <= q.AfterID {
			continue
		}
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		out = append(out, r.s.books[id])
	}
	return out, nil
}

func (r *BookRepo) GetByID(ctx context.Context, id int64) (book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.books[id]
	if !ok {
		return book.Book{}, book.ErrNotFound
	}
	return b, nil
}

func (r *BookRepo) Create(ctx context.Context, b *book.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if b.ISBN != nil && r.isbnTaken(*b.ISBN, 0) {
		return book.ErrISBNTaken
	}
	r.s.nextBookID++
	b.ID = r.s.nextBookID
	r.s.books[b.ID] = *b
	return nil
}

func (r *BookRepo) Update(ctx context.Context, id int64, p book.Patch) (book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.books[id]
	if !ok {
		return book.Book{}, book.ErrNotFound
	}
	if !p.ClearISBN && p.ISBN != nil && r.isbnTaken(*p.ISBN, id) {
		return book.Book{}, book.ErrISBNTaken
	}
	b = p.Apply(b)
	r.s.books[id] = b
	return b, nil
}

func (r *BookRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.books[id]; !ok {
		return book.ErrNotFound
	}
	if _, open := r.s.openLoanOf(id); open {
		return book.ErrHasOpenLoans
	}
	delete(r.s.books, id)
	r.s.dropLoans(func(l circulation.Loan) bool { return l.BookID == id })
	return nil
}

func (r *BookRepo) isbnTaken(isbn string, except int64) bool {
	for id, b := range r.s.books {
		if id != except && b.ISBN != nil && *b.ISBN == isbn {
			return true
		}
	}
	return false
}
