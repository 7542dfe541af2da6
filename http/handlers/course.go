package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/http/response"
	"intellicourse/logger"
	"intellicourse/models"
	"intellicourse/store"
	"intellicourse/utils"
)

// CourseHandler serves the course catalog.
type CourseHandler struct {
	courses store.CourseStore
}

func NewCourseHandler(courses store.CourseStore) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// GetCourses handles GET /courses.
func (h *CourseHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	courses, err := h.courses.List(ctx)
	if err != nil {
		logger.Error("Failed to list courses: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch courses")
		return
	}

	out := make([]models.CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.ToResponse())
	}
	response.Success(w, http.StatusOK, "", out)
}

// GetCourseByID handles GET /courses/{id} and the legacy GET /course?id=
// form the storefront still calls.
func (h *CourseHandler) GetCourseByID(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	if raw == "" {
		raw = r.URL.Query().Get("id")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "Course ID must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	course, err := h.courses.ByID(ctx, id)
	if err != nil {
		logger.Error("Failed to fetch course %d: %v", id, err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch course")
		return
	}
	if course == nil {
		response.Error(w, http.StatusNotFound, "Course not found")
		return
	}

	response.Success(w, http.StatusOK, "", course.ToResponse())
}

type createCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"required,gt=0"`
}

// CreateCourse handles POST /courses.
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if fieldErrs := utils.ValidateStruct(req); len(fieldErrs) > 0 {
		response.ValidationError(w, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	now := time.Now().UTC()
	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price).Round(2),
		IsActive:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.courses.Create(ctx, course); err != nil {
		logger.Error("Failed to create course: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to create course")
		return
	}

	response.Success(w, http.StatusCreated, "Course created", course.ToResponse())
}
