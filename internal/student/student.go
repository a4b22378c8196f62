package student

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a student is not found.
	ErrNotFound = errors.New("student not found")
	// ErrInvalidInput wraps every validation failure on create and update.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmailTaken is returned when another student already uses the email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrHasOpenLoans is returned when deleting a student who still holds a book.
	ErrHasOpenLoans = errors.New("student has books on loan")
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Student represents a library member.
type Student struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	BirthDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStudent holds the fields required to create a student.
type NewStudent struct {
	Email     string
	FirstName string
	LastName  string
	BirthDate *time.Time
}

// Patch lists the fields to change. Nil fields are left untouched;
// ClearBirthDate removes the birth date.
type Patch struct {
	Email          *string
	FirstName      *string
	LastName       *string
	BirthDate      *time.Time
	ClearBirthDate bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.BirthDate == nil && !p.ClearBirthDate
}

// Apply returns s with the patch applied.
func (p Patch) Apply(s Student) Student {
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.FirstName != nil {
		s.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		s.LastName = *p.LastName
	}
	if p.ClearBirthDate {
		s.BirthDate = nil
	} else if p.BirthDate != nil {
		d := *p.BirthDate
		s.BirthDate = &d
	}
	return s
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: birth_date must be a date in YYYY-MM-DD format", ErrInvalidInput)
	}
	return d, nil
}

// FormatDate renders d as YYYY-MM-DD, or nil when d is nil.
func FormatDate(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := d.Format(DateLayout)
	return &s
}
