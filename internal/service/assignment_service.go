package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/metrics"
	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/repository"
	"github.com/sena-seguimiento/assignment-service/internal/service/integration"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

// AssignmentService is the orchestrator bridging the state machine, the
// ledger and instructor capacity. Every mutation validates first, computes
// the transition second, and persists third; a validation failure leaves
// no trace anywhere.
type AssignmentService interface {
	CreateRequest(ctx context.Context, req *models.CreateRequestRequest) (*models.RequestWithInstructor, error)
	AssignInstructor(ctx context.Context, actor models.Actor, requestID string, req *models.AssignInstructorRequest) (*models.TransitionResponse, error)
	PreApprove(ctx context.Context, actor models.Actor, requestID string, req *models.PreApproveRequest) (*models.TransitionResponse, error)
	InstructorVerdict(ctx context.Context, actor models.Actor, requestID string, req *models.VerdictRequest) (*models.TransitionResponse, error)
	GetRequestDetail(ctx context.Context, id string) (*models.RequestDetail, error)
	GetRequests(ctx context.Context, state string, page, limit int) (*models.RequestsResponse, error)
}

type assignmentService struct {
	requestRepo    repository.RequestRepository
	instructorRepo repository.InstructorRepository
	messageRepo    repository.MessageRepository
	portalClient   integration.PortalClient
	events         integration.EventPublisher
	logger         zerolog.Logger
}

func NewAssignmentService(
	requestRepo repository.RequestRepository,
	instructorRepo repository.InstructorRepository,
	messageRepo repository.MessageRepository,
	portalClient integration.PortalClient,
	events integration.EventPublisher,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		requestRepo:    requestRepo,
		instructorRepo: instructorRepo,
		messageRepo:    messageRepo,
		portalClient:   portalClient,
		events:         events,
		logger:         logger,
	}
}

// CreateRequest is the portal's intake path: a freshly submitted request
// enters as SIN_ASIGNAR at version 1 and waits for the coordinator.
func (s *assignmentService) CreateRequest(ctx context.Context, req *models.CreateRequestRequest) (*models.RequestWithInstructor, error) {
	if req.ApprenticeID == "" || req.EnterpriseID == "" {
		return nil, fmt.Errorf("%w: apprentice and enterprise are required", workflow.ErrValidation)
	}
	if strings.TrimSpace(req.Modality) == "" {
		return nil, fmt.Errorf("%w: modality is required", workflow.ErrValidation)
	}

	now := time.Now()
	request := &models.Request{
		ID:           uuid.New().String(),
		ApprenticeID: req.ApprenticeID,
		EnterpriseID: req.EnterpriseID,
		Modality:     req.Modality,
		RequestState: models.StateUnassigned.String(),
		RequestDate:  now,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.logger.Info().
		Str("request_id", request.ID).
		Str("modality", request.Modality).
		Msg("Request created")

	created, err := s.requestRepo.GetByID(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read created request: %w", err)
	}
	if created == nil {
		return nil, workflow.ErrRequestNotFound
	}
	return created, nil
}

func (s *assignmentService) AssignInstructor(ctx context.Context, actor models.Actor, requestID string, req *models.AssignInstructorRequest) (*models.TransitionResponse, error) {
	if req.InstructorID == "" {
		return nil, fmt.Errorf("%w: instructor is required", workflow.ErrValidation)
	}
	if err := ValidateContent(req.Content); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request == nil {
		return nil, workflow.ErrRequestNotFound
	}

	result, err := workflow.Transition(request.RequestState, request.Modality, actor.Role, workflow.OutcomeAssign)
	if err != nil {
		metrics.TransitionFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	exists, err := s.instructorRepo.Exists(ctx, req.InstructorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check instructor: %w", err)
	}
	if !exists {
		return nil, workflow.ErrInstructorNotFound
	}

	params := repository.TransitionParams{
		RequestID:       requestID,
		ExpectedVersion: req.Version,
		NextState:       result.Next,
		NewInstructorID: &req.InstructorID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Message:         s.newMessage(requestID, req.Content, result.Type, actor.Role),
	}

	// Capacity moves only when the binding changes: a new instructor takes
	// a slot, a replaced one gets theirs back. Reconfirming the same
	// instructor must not double-count.
	switch {
	case request.InstructorID == nil:
		params.ReserveInstructorID = &req.InstructorID
	case *request.InstructorID != req.InstructorID:
		params.ReserveInstructorID = &req.InstructorID
		params.ReleaseInstructorID = request.InstructorID
	}

	if err := s.applyAndLog(ctx, workflow.OutcomeAssign, result, params); err != nil {
		return nil, err
	}

	s.publishAssigned(ctx, requestID, req.InstructorID, result, actor)

	return s.freshResponse(ctx, requestID, params.Message.ID)
}

func (s *assignmentService) PreApprove(ctx context.Context, actor models.Actor, requestID string, req *models.PreApproveRequest) (*models.TransitionResponse, error) {
	if err := ValidateContent(req.Content); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request == nil {
		return nil, workflow.ErrRequestNotFound
	}
	if request.InstructorID == nil {
		return nil, fmt.Errorf("%w: no instructor assigned yet", workflow.ErrValidation)
	}

	// An instructor-authored rejection marker in the ledger blocks the
	// coordinator's approval outright: no message, no state change.
	blocked, err := s.messageRepo.HasRejectionFrom(ctx, requestID, models.RoleInstructor)
	if err != nil {
		return nil, fmt.Errorf("failed to check rejection marker: %w", err)
	}
	if blocked {
		metrics.TransitionFailures.WithLabelValues("blocked_by_instructor_rejection").Inc()
		return nil, workflow.ErrBlockedByInstructorRejection
	}

	result, err := workflow.Transition(request.RequestState, request.Modality, actor.Role, workflow.OutcomePreApprove)
	if err != nil {
		metrics.TransitionFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	params := repository.TransitionParams{
		RequestID:       requestID,
		ExpectedVersion: req.Version,
		NextState:       result.Next,
		Message:         s.newMessage(requestID, req.Content, result.Type, actor.Role),
	}

	if err := s.applyAndLog(ctx, workflow.OutcomePreApprove, result, params); err != nil {
		return nil, err
	}

	s.publishAssigned(ctx, requestID, *request.InstructorID, result, actor)

	return s.freshResponse(ctx, requestID, params.Message.ID)
}

func (s *assignmentService) InstructorVerdict(ctx context.Context, actor models.Actor, requestID string, req *models.VerdictRequest) (*models.TransitionResponse, error) {
	if err := ValidateContent(req.Content); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request == nil {
		return nil, workflow.ErrRequestNotFound
	}

	outcome := workflow.OutcomeObserve
	if req.Approve {
		outcome = workflow.OutcomeVerify
	}

	result, err := workflow.Transition(request.RequestState, request.Modality, actor.Role, outcome)
	if err != nil {
		metrics.TransitionFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	params := repository.TransitionParams{
		RequestID:       requestID,
		ExpectedVersion: req.Version,
		NextState:       result.Next,
		Message:         s.newMessage(requestID, req.Content, result.Type, actor.Role),
	}

	if err := s.applyAndLog(ctx, outcome, result, params); err != nil {
		return nil, err
	}

	return s.freshResponse(ctx, requestID, params.Message.ID)
}

func (s *assignmentService) GetRequestDetail(ctx context.Context, id string) (*models.RequestDetail, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request == nil {
		return nil, workflow.ErrRequestNotFound
	}

	messages, err := s.messageRepo.GetByRequestID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	detail := &models.RequestDetail{
		Request:  request,
		Messages: messages,
	}

	// The apprentice form lives in the portal; a failed lookup degrades
	// the detail view instead of failing it.
	form, err := s.portalClient.GetFormRequest(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", id).Msg("Portal form lookup failed")
		detail.FormUnavailable = true
	} else {
		detail.Form = form
	}

	return detail, nil
}

func (s *assignmentService) GetRequests(ctx context.Context, state string, page, limit int) (*models.RequestsResponse, error) {
	if state != "" {
		if _, ok := models.ParseRequestState(state); !ok {
			return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidState, state)
		}
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit

	requests, total, err := s.requestRepo.GetAll(ctx, state, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get requests: %w", err)
	}

	return &models.RequestsResponse{
		Requests: requests,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

func (s *assignmentService) newMessage(requestID, content string, msgType models.MessageType, author models.Role) *models.Message {
	return &models.Message{
		ID:           newMessageID(),
		RequestID:    requestID,
		Content:      content,
		TypeMessage:  msgType.String(),
		WhoseMessage: author.String(),
		CreatedAt:    time.Now(),
	}
}

func (s *assignmentService) applyAndLog(ctx context.Context, outcome workflow.Outcome, result workflow.Result, params repository.TransitionParams) error {
	if err := s.requestRepo.ApplyTransition(ctx, params); err != nil {
		if errors.Is(err, workflow.ErrCapacityExhausted) {
			metrics.CapacityRejections.Inc()
		}
		metrics.TransitionFailures.WithLabelValues(failureReason(err)).Inc()
		return err
	}

	metrics.Transitions.WithLabelValues(outcome.String(), result.Next.String()).Inc()

	s.logger.Info().
		Str("request_id", params.RequestID).
		Str("outcome", outcome.String()).
		Str("next_state", result.Next.String()).
		Str("type_message", result.Type.String()).
		Msg("Transition applied")

	return nil
}

// freshResponse re-reads the request so callers render server truth, not
// the client's stale view.
func (s *assignmentService) freshResponse(ctx context.Context, requestID, messageID string) (*models.TransitionResponse, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh request: %w", err)
	}
	if request == nil {
		return nil, workflow.ErrRequestNotFound
	}

	messages, err := s.messageRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh messages: %w", err)
	}

	var appended *models.Message
	for i := range messages {
		if messages[i].ID == messageID {
			appended = &messages[i]
			break
		}
	}

	return &models.TransitionResponse{
		Request: &request.Request,
		Message: appended,
	}, nil
}

func (s *assignmentService) publishAssigned(ctx context.Context, requestID, instructorID string, result workflow.Result, actor models.Actor) {
	if s.events == nil {
		return
	}

	event := &models.RequestAssignedEvent{
		RequestID:    requestID,
		InstructorID: instructorID,
		RequestState: result.Next.String(),
		TypeMessage:  result.Type.String(),
		ActorID:      actor.ID,
		ActorRole:    actor.Role.String(),
		Timestamp:    time.Now().Unix(),
	}

	if err := s.events.PublishAssigned(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Failed to publish assignment event")
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, workflow.ErrTerminalState):
		return "terminal_state"
	case errors.Is(err, workflow.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, workflow.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, workflow.ErrActorNotAllowed):
		return "actor_not_allowed"
	case errors.Is(err, workflow.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, workflow.ErrCapacityExhausted):
		return "capacity_exhausted"
	case errors.Is(err, workflow.ErrPartialFailure):
		return "partial_failure"
	default:
		return "storage_error"
	}
}
