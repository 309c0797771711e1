package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sena-seguimiento/assignment-service/internal/models"
)

func (h *Handler) GetRequests(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	ctx := r.Context()
	response, err := h.assignmentService.GetRequests(ctx, state, page, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

// CreateRequest is the intake endpoint for portal-submitted requests.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	created, err := h.assignmentService.CreateRequest(ctx, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    created,
	})
}

func (h *Handler) GetRequestDetail(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	ctx := r.Context()
	detail, err := h.assignmentService.GetRequestDetail(ctx, requestID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, detail)
}

func (h *Handler) GetRequestMessages(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	ctx := r.Context()

	// ?latest_by=COORDINADOR serves the pre-fill use case: what did the
	// coordinator last say.
	if author := r.URL.Query().Get("latest_by"); author != "" {
		role, ok := models.ParseRole(author)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid latest_by role")
			return
		}

		message, err := h.ledgerService.LatestByAuthor(ctx, requestID, role)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}

		writeSuccess(w, map[string]interface{}{"message": message})
		return
	}

	messages, err := h.ledgerService.History(ctx, requestID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"messages": messages,
		"total":    len(messages),
	})
}

func (h *Handler) AssignInstructor(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-Actor-Role header is required")
		return
	}

	var req models.AssignInstructorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	response, err := h.assignmentService.AssignInstructor(ctx, actor, requestID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) PreApprove(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-Actor-Role header is required")
		return
	}

	var req models.PreApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	response, err := h.assignmentService.PreApprove(ctx, actor, requestID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) InstructorVerdict(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-Actor-Role header is required")
		return
	}

	var req models.VerdictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	response, err := h.assignmentService.InstructorVerdict(ctx, actor, requestID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-Actor-Role header is required")
		return
	}

	var req models.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	response, err := h.rejectionService.Reject(ctx, actor, requestID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}
