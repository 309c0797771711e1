package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sena-seguimiento/assignment-service/internal/models"
)

func (h *Handler) SearchInstructors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")
	knowledgeAreaID := r.URL.Query().Get("knowledge_area_id")
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	ctx := r.Context()
	response, err := h.instructorService.Search(ctx, query, knowledgeAreaID, page, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) CreateInstructor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInstructorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	instructor, err := h.instructorService.Create(ctx, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    instructor,
	})
}

func (h *Handler) GetInstructorByID(w http.ResponseWriter, r *http.Request) {
	instructorID := chi.URLParam(r, "id")
	if instructorID == "" {
		writeError(w, http.StatusBadRequest, "Instructor ID is required")
		return
	}

	ctx := r.Context()
	instructor, err := h.instructorService.GetByID(ctx, instructorID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, instructor)
}

func (h *Handler) SetInstructorLimit(w http.ResponseWriter, r *http.Request) {
	instructorID := chi.URLParam(r, "id")
	if instructorID == "" {
		writeError(w, http.StatusBadRequest, "Instructor ID is required")
		return
	}

	var req models.SetLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.NewLimit < 1 {
		writeError(w, http.StatusBadRequest, "new_limit must be positive")
		return
	}

	ctx := r.Context()
	instructor, err := h.instructorService.SetLimit(ctx, instructorID, req.NewLimit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, instructor)
}

func (h *Handler) GetKnowledgeAreas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	areas, err := h.instructorService.KnowledgeAreas(ctx)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"knowledge_areas": areas,
		"total":           len(areas),
	})
}
