package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/repository"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

// LedgerService exposes the per-request audit trail. Messages written
// through the orchestrator go through ApplyTransition instead; Append here
// serves standalone notes that do not move the state machine.
type LedgerService interface {
	Append(ctx context.Context, requestID, content string, msgType models.MessageType, author models.Role) (*models.Message, error)
	History(ctx context.Context, requestID string) ([]models.Message, error)
	LatestByAuthor(ctx context.Context, requestID string, author models.Role) (*models.Message, error)
	HasRejectionFrom(ctx context.Context, requestID string, author models.Role) (bool, error)
}

type ledgerService struct {
	messageRepo repository.MessageRepository
	requestRepo repository.RequestRepository
	logger      zerolog.Logger
}

func NewLedgerService(
	messageRepo repository.MessageRepository,
	requestRepo repository.RequestRepository,
	logger zerolog.Logger,
) LedgerService {
	return &ledgerService{
		messageRepo: messageRepo,
		requestRepo: requestRepo,
		logger:      logger,
	}
}

func newMessageID() string {
	return uuid.New().String()
}

// ValidateContent enforces the 1..500 bound shared by every ledger write.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return workflow.ErrEmptyContent
	}
	if len([]rune(content)) > models.MaxMessageContentLength {
		return workflow.ErrContentTooLong
	}
	return nil
}

func (s *ledgerService) Append(ctx context.Context, requestID, content string, msgType models.MessageType, author models.Role) (*models.Message, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request == nil {
		return nil, workflow.ErrRequestNotFound
	}

	message := &models.Message{
		ID:           uuid.New().String(),
		RequestID:    requestID,
		Content:      content,
		TypeMessage:  msgType.String(),
		WhoseMessage: author.String(),
		CreatedAt:    time.Now(),
	}

	if err := s.messageRepo.Append(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	s.logger.Info().
		Str("message_id", message.ID).
		Str("request_id", requestID).
		Str("type_message", message.TypeMessage).
		Str("whose_message", message.WhoseMessage).
		Msg("Message appended")

	return message, nil
}

func (s *ledgerService) History(ctx context.Context, requestID string) ([]models.Message, error) {
	messages, err := s.messageRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

func (s *ledgerService) LatestByAuthor(ctx context.Context, requestID string, author models.Role) (*models.Message, error) {
	message, err := s.messageRepo.LatestByAuthor(ctx, requestID, author)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return message, nil
}

func (s *ledgerService) HasRejectionFrom(ctx context.Context, requestID string, author models.Role) (bool, error) {
	has, err := s.messageRepo.HasRejectionFrom(ctx, requestID, author)
	if err != nil {
		return false, fmt.Errorf("failed to check rejection marker: %w", err)
	}
	return has, nil
}
