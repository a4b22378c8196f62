package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

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

type studentResponse struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	BirthDate *string `json:"birth_date"`
}

func toResponse(s Student) studentResponse {
	return studentResponse{
		ID:        s.ID,
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		BirthDate: FormatDate(s.BirthDate),
	}
}

type createReq struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	BirthDate *string `json:"birth_date"`
}

// List handles GET /students
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.List(r.Context())
	if err != nil {
		httpx.InternalError(w, r, h.logger, err)
		return
	}

	out := make([]studentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, toResponse(s))
	}
	httpx.JSONSuccess(w, out)
}

// Get handles GET /students/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Student not found")
		return
	}

	s, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, toResponse(s))
}

// Create handles POST /students
// @Summary Add a student
// @Tags students
// @Accept json
// @Produce json
// @Param request body createReq true "Student"
// @Success 201 {object} httpx.MessageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /students [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid data, email, first_name, and last_name are required")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONValidationError(w, details)
		return
	}

	in := NewStudent{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
	if req.BirthDate != nil {
		d, err := ParseDate(*req.BirthDate)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		in.BirthDate = &d
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, "Student added successfully", created.ID)
}

// Update handles PUT /students/{id}. Only the fields present in the body
// are changed; "birth_date": null clears the date.
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Student not found")
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "No data provided")
		return
	}

	patch, err := decodePatch(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if patch.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "No data provided")
		return
	}

	if _, err := h.service.Update(r.Context(), id, patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, "Student updated successfully")
}

// Delete handles DELETE /students/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Student not found")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, "Student deleted successfully")
}

func decodePatch(body map[string]json.RawMessage) (Patch, error) {
	var p Patch
	stringField := func(name string) (*string, error) {
		raw, ok := body[name]
		if !ok {
			return nil, nil
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil || v == nil {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidInput, name)
		}
		return v, nil
	}

	var err error
	if p.Email, err = stringField("email"); err != nil {
		return Patch{}, err
	}
	if p.FirstName, err = stringField("first_name"); err != nil {
		return Patch{}, err
	}
	if p.LastName, err = stringField("last_name"); err != nil {
		return Patch{}, err
	}

	if raw, ok := body["birth_date"]; ok {
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return Patch{}, fmt.Errorf("%w: birth_date must be a date in YYYY-MM-DD format", ErrInvalidInput)
		}
		if v == nil {
			p.ClearBirthDate = true
		} else {
			d, err := ParseDate(*v)
			if err != nil {
				return Patch{}, err
			}
			p.BirthDate = &d
		}
	}
	return p, nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "Student not found")
	case errors.Is(err, ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, invalidInputMessage(err))
	case errors.Is(err, ErrEmailTaken):
		httpx.JSONError(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, ErrHasOpenLoans):
		httpx.JSONError(w, http.StatusBadRequest, "Student has books on loan")
	default:
		httpx.InternalError(w, r, h.logger, err)
	}
}

func invalidInputMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}
