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
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

// InstructorService lists eligible instructors and governs capacity-limit
// edits.
type InstructorService interface {
	Create(ctx context.Context, req *models.CreateInstructorRequest) (*models.InstructorSummary, error)
	Search(ctx context.Context, query, knowledgeAreaID string, page, limit int) (*models.InstructorsResponse, error)
	GetByID(ctx context.Context, id string) (*models.InstructorSummary, error)
	SetLimit(ctx context.Context, id string, newLimit int) (*models.InstructorSummary, error)
	KnowledgeAreas(ctx context.Context) ([]models.KnowledgeArea, error)
}

type instructorService struct {
	instructorRepo repository.InstructorRepository
	areaRepo       repository.KnowledgeAreaRepository
	logger         zerolog.Logger
}

func NewInstructorService(
	instructorRepo repository.InstructorRepository,
	areaRepo repository.KnowledgeAreaRepository,
	logger zerolog.Logger,
) InstructorService {
	return &instructorService{
		instructorRepo: instructorRepo,
		areaRepo:       areaRepo,
		logger:         logger,
	}
}

// LoadBand classifies an instructor's load for presentation. Total for
// assigned >= 0 and max > 0: <70% green, <90% amber, otherwise red.
func LoadBand(assigned, max int) models.LoadBand {
	if max <= 0 {
		return models.LoadBandRed
	}

	ratio := float64(assigned) / float64(max)
	switch {
	case ratio < 0.70:
		return models.LoadBandGreen
	case ratio < 0.90:
		return models.LoadBandAmber
	default:
		return models.LoadBandRed
	}
}

// ValidateLimit is the fast-fail headroom check. The repository re-checks
// the same rule inside the UPDATE; this one exists so callers get the
// error before any round trip.
func ValidateLimit(assigned, newLimit int) error {
	if newLimit < assigned+models.LimitHeadroom {
		return fmt.Errorf("%w: limit %d, assigned %d", workflow.ErrLimitBelowHeadroom, newLimit, assigned)
	}
	return nil
}

// Create registers a follow-up instructor. New instructors start with
// zero load and the default ceiling unless one is given.
func (s *instructorService) Create(ctx context.Context, req *models.CreateInstructorRequest) (*models.InstructorSummary, error) {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", workflow.ErrValidation)
	}
	if strings.TrimSpace(req.Document) == "" {
		return nil, fmt.Errorf("%w: document is required", workflow.ErrValidation)
	}
	if req.KnowledgeAreaID == "" {
		return nil, fmt.Errorf("%w: knowledge area is required", workflow.ErrValidation)
	}

	maxLearners := req.MaxAssignedLearners
	if maxLearners <= 0 {
		maxLearners = models.DefaultMaxAssignedLearners
	}

	now := time.Now()
	instructor := &models.Instructor{
		ID:                  uuid.New().String(),
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Document:            req.Document,
		Email:               req.Email,
		Phone:               req.Phone,
		KnowledgeAreaID:     req.KnowledgeAreaID,
		AssignedLearners:    0,
		MaxAssignedLearners: maxLearners,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.instructorRepo.Create(ctx, instructor); err != nil {
		return nil, fmt.Errorf("failed to create instructor: %w", err)
	}

	s.logger.Info().
		Str("instructor_id", instructor.ID).
		Str("document", instructor.Document).
		Int("max_assigned_learners", maxLearners).
		Msg("Instructor created")

	return s.GetByID(ctx, instructor.ID)
}

func (s *instructorService) Search(ctx context.Context, query, knowledgeAreaID string, page, limit int) (*models.InstructorsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	// The filter compares resolved area names. An unresolvable id falls
	// back to the raw value so a stale filter degrades instead of erroring.
	areaName := ""
	if knowledgeAreaID != "" {
		name, err := s.areaRepo.ResolveName(ctx, knowledgeAreaID)
		if err != nil || name == "" {
			s.logger.Debug().Str("knowledge_area_id", knowledgeAreaID).Msg("Could not resolve knowledge area, using raw id")
			areaName = knowledgeAreaID
		} else {
			areaName = name
		}
	}

	offset := (page - 1) * limit

	instructors, total, err := s.instructorRepo.Search(ctx, query, areaName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search instructors: %w", err)
	}

	summaries := make([]models.InstructorSummary, 0, len(instructors))
	for _, instructor := range instructors {
		summaries = append(summaries, models.InstructorSummary{
			InstructorWithArea: instructor,
			LoadBand:           LoadBand(instructor.AssignedLearners, instructor.MaxAssignedLearners),
		})
	}

	return &models.InstructorsResponse{
		Instructors: summaries,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}, nil
}

func (s *instructorService) GetByID(ctx context.Context, id string) (*models.InstructorSummary, error) {
	instructor, err := s.instructorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get instructor: %w", err)
	}
	if instructor == nil {
		return nil, workflow.ErrInstructorNotFound
	}

	return &models.InstructorSummary{
		InstructorWithArea: *instructor,
		LoadBand:           LoadBand(instructor.AssignedLearners, instructor.MaxAssignedLearners),
	}, nil
}

func (s *instructorService) SetLimit(ctx context.Context, id string, newLimit int) (*models.InstructorSummary, error) {
	current, err := s.instructorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get instructor: %w", err)
	}
	if current == nil {
		return nil, workflow.ErrInstructorNotFound
	}

	if err := ValidateLimit(current.AssignedLearners, newLimit); err != nil {
		metrics.HeadroomRejections.Inc()
		return nil, err
	}

	updated, err := s.instructorRepo.SetLimit(ctx, id, newLimit)
	if err != nil {
		if errors.Is(err, workflow.ErrLimitBelowHeadroom) {
			// Load moved between read and write; the authoritative guard
			// in the UPDATE caught it.
			metrics.HeadroomRejections.Inc()
		}
		return nil, err
	}

	s.logger.Info().
		Str("instructor_id", id).
		Int("new_limit", newLimit).
		Int("assigned_learners", updated.AssignedLearners).
		Msg("Instructor capacity limit updated")

	return &models.InstructorSummary{
		InstructorWithArea: *updated,
		LoadBand:           LoadBand(updated.AssignedLearners, updated.MaxAssignedLearners),
	}, nil
}

func (s *instructorService) KnowledgeAreas(ctx context.Context) ([]models.KnowledgeArea, error) {
	areas, err := s.areaRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge areas: %w", err)
	}
	return areas, nil
}
