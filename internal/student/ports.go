package student

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=student

// Repository defines the contract for student storage.
type Repository interface {
	List(ctx context.Context) ([]Student, error)
	GetByID(ctx context.Context, id int64) (Student, error)
	Create(ctx context.Context, s *Student) error
	Update(ctx context.Context, id int64, p Patch) (Student, error)
	// Delete removes the student and their loan history. It fails with
	// ErrHasOpenLoans while the student holds a book.
	Delete(ctx context.Context, id int64) error
}
