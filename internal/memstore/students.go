package memstore

import (
	"context"

	"libraryapi/internal/circulation"
	"libraryapi/internal/student"
)

type StudentRepo struct {
	s *Store
}

func (r *StudentRepo) List(ctx context.Context) ([]student.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]student.Student, 0, len(r.s.students))
	for _, id := range sortedIDs(r.s.students) {
		out = append(out, r.s.students[id])
	}
	return out, nil
}

func (r *StudentRepo) GetByID(ctx context.Context, id int64) (student.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (r *StudentRepo) Create(ctx context.Context, st *student.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(st.Email, 0) {
		return student.ErrEmailTaken
	}
	r.s.nextStudentID++
	st.ID = r.s.nextStudentID
	st.CreatedAt = r.s.now()
	st.UpdatedAt = st.CreatedAt
	r.s.students[st.ID] = *st
	return nil
}

func (r *StudentRepo) Update(ctx context.Context, id int64, p student.Patch) (student.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if p.Email != nil && r.emailTaken(*p.Email, id) {
		return student.Student{}, student.ErrEmailTaken
	}
	st = p.Apply(st)
	st.UpdatedAt = r.s.now()
	r.s.students[id] = st
	return st, nil
}

func (r *StudentRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.students[id]; !ok {
		return student.ErrNotFound
	}
	for _, l := range r.s.loans {
		if l.StudentID == id && l.Open() {
			return student.ErrHasOpenLoans
		}
	}
	delete(r.s.students, id)
	r.s.dropLoans(func(l circulation.Loan) bool { return l.StudentID == id })
	return nil
}

func (r *StudentRepo) emailTaken(email string, except int64) bool {
	for id, st := range r.s.students {
		if id != except && st.Email == email {
			return true
		}
	}
	return false
}
