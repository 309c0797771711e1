package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/service"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

type Handler struct {
	assignmentService service.AssignmentService
	rejectionService  service.RejectionService
	instructorService service.InstructorService
	ledgerService     service.LedgerService
	logger            zerolog.Logger
}

func NewHandler(
	assignmentService service.AssignmentService,
	rejectionService service.RejectionService,
	instructorService service.InstructorService,
	ledgerService service.LedgerService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		assignmentService: assignmentService,
		rejectionService:  rejectionService,
		instructorService: instructorService,
		ledgerService:     ledgerService,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/requests", func(r chi.Router) {
			r.Get("/", h.GetRequests)
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequestDetail)
			r.Get("/{id}/messages", h.GetRequestMessages)
			r.Post("/{id}/assign", h.AssignInstructor)
			r.Post("/{id}/pre-approve", h.PreApprove)
			r.Post("/{id}/verdict", h.InstructorVerdict)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		api.Route("/instructors", func(r chi.Router) {
			r.Get("/", h.SearchInstructors)
			r.Post("/", h.CreateInstructor)
			r.Get("/{id}", h.GetInstructorByID)
			r.Patch("/{id}/limit", h.SetInstructorLimit)
		})

		api.Get("/knowledge-areas", h.GetKnowledgeAreas)
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   "assignment-service",
		Timestamp: time.Now().UTC(),
	})
}

// actorFromRequest reads the principal the portal's session layer put on
// the request. The actor is always an explicit input to the services.
func actorFromRequest(r *http.Request) (models.Actor, bool) {
	role, ok := models.ParseRole(r.Header.Get("X-Actor-Role"))
	if !ok {
		return models.Actor{}, false
	}

	return models.Actor{
		ID:   r.Header.Get("X-Actor-Id"),
		Role: role,
	}, true
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}

// handleServiceError maps the workflow error taxonomy onto HTTP statuses.
// Validation problems are client-recoverable (422); contested outcomes
// surface as conflicts (409) so the portal refreshes and retries.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrValidation),
		errors.Is(err, workflow.ErrEmptyContent),
		errors.Is(err, workflow.ErrContentTooLong),
		errors.Is(err, workflow.ErrLimitBelowHeadroom):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, workflow.ErrBlockedByInstructorRejection),
		errors.Is(err, workflow.ErrTerminalState),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrVersionConflict),
		errors.Is(err, workflow.ErrCapacityExhausted):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, workflow.ErrActorNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, workflow.ErrRequestNotFound),
		errors.Is(err, workflow.ErrInstructorNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, workflow.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, workflow.ErrPartialFailure):
		h.logger.Error().Err(err).Msg("Transition needs reconciliation")
		writeError(w, http.StatusInternalServerError, "transition result unknown, refresh before retrying")

	default:
		h.logger.Error().Err(err).Msg("Service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
