package student

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Service provides the student record operations.
type Service struct {
	repo Repository
}

// NewService creates a new student service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates the required fields and stores a new student.
func (s *Service) Create(ctx context.Context, in NewStudent) (Student, error) {
	st := Student{
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		BirthDate: in.BirthDate,
	}
	if err := validateEmail(st.Email); err != nil {
		return Student{}, err
	}
	if err := requireName("first_name", st.FirstName); err != nil {
		return Student{}, err
	}
	if err := requireName("last_name", st.LastName); err != nil {
		return Student{}, err
	}

	if err := s.repo.Create(ctx, &st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// Update applies only the fields present in p.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (Student, error) {
	if p.Empty() {
		return Student{}, fmt.Errorf("%w: no data provided", ErrInvalidInput)
	}

	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		if err := validateEmail(email); err != nil {
			return Student{}, err
		}
		p.Email = &email
	}
	if p.FirstName != nil {
		name := strings.TrimSpace(*p.FirstName)
		if err := requireName("first_name", name); err != nil {
			return Student{}, err
		}
		p.FirstName = &name
	}
	if p.LastName != nil {
		name := strings.TrimSpace(*p.LastName)
		if err := requireName("last_name", name); err != nil {
			return Student{}, err
		}
		p.LastName = &name
	}

	return s.repo.Update(ctx, id, p)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if err := validate.Var(email, "email"); err != nil {
		return fmt.Errorf("%w: email must be a valid email address", ErrInvalidInput)
	}
	return nil
}

func requireName(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return nil
}
