package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/metrics"
	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/repository"
	"github.com/sena-seguimiento/assignment-service/internal/service/integration"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

// RejectionService applies the terminal rejection: mandatory reason, one
// RECHAZADO message, state RECHAZADO, and release of any held capacity.
type RejectionService interface {
	Reject(ctx context.Context, actor models.Actor, requestID string, req *models.RejectRequest) (*models.TransitionResponse, error)
}

type rejectionService struct {
	requestRepo repository.RequestRepository
	messageRepo repository.MessageRepository
	events      integration.EventPublisher
	logger      zerolog.Logger
}

func NewRejectionService(
	requestRepo repository.RequestRepository,
	messageRepo repository.MessageRepository,
	events integration.EventPublisher,
	logger zerolog.Logger,
) RejectionService {
	return &rejectionService{
		requestRepo: requestRepo,
		messageRepo: messageRepo,
		events:      events,
		logger:      logger,
	}
}

func (s *rejectionService) Reject(ctx context.Context, actor models.Actor, requestID string, req *models.RejectRequest) (*models.TransitionResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", workflow.ErrValidation)
	}
	if err := ValidateContent(reason); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request == nil {
		return nil, workflow.ErrRequestNotFound
	}

	result, err := workflow.Transition(request.RequestState, request.Modality, actor.Role, workflow.OutcomeReject)
	if err != nil {
		metrics.TransitionFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	message := &models.Message{
		ID:           newMessageID(),
		RequestID:    requestID,
		Content:      reason,
		TypeMessage:  result.Type.String(),
		WhoseMessage: actor.Role.String(),
		CreatedAt:    time.Now(),
	}

	params := repository.TransitionParams{
		RequestID:       requestID,
		ExpectedVersion: req.Version,
		NextState:       result.Next,
		Message:         message,
		// A rejected request must not keep holding a slot: the bound
		// instructor, if any, gets it back in the same transaction.
		ReleaseInstructorID: request.InstructorID,
	}

	if err := s.requestRepo.ApplyTransition(ctx, params); err != nil {
		metrics.TransitionFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	metrics.Transitions.WithLabelValues(workflow.OutcomeReject.String(), result.Next.String()).Inc()

	s.logger.Info().
		Str("request_id", requestID).
		Str("actor_role", actor.Role.String()).
		Msg("Request rejected")

	s.publishRejected(ctx, requestID, reason, actor)

	fresh, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh request: %w", err)
	}
	if fresh == nil {
		return nil, workflow.ErrRequestNotFound
	}

	return &models.TransitionResponse{
		Request: &fresh.Request,
		Message: message,
	}, nil
}

func (s *rejectionService) publishRejected(ctx context.Context, requestID, reason string, actor models.Actor) {
	if s.events == nil {
		return
	}

	event := &models.RequestRejectedEvent{
		RequestID: requestID,
		Reason:    reason,
		ActorID:   actor.ID,
		ActorRole: actor.Role.String(),
		Timestamp: time.Now().Unix(),
	}

	if err := s.events.PublishRejected(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Failed to publish rejection event")
	}
}
