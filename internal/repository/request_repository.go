package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

// TransitionParams describes one atomic workflow step: the message to
// append, the state to land in, and the capacity movements it implies.
// Everything is applied in a single transaction so a ledger entry can never
// exist without its state change.
type TransitionParams struct {
	RequestID       string
	ExpectedVersion int
	NextState       models.RequestState
	Message         *models.Message

	// NewInstructorID rebinds the request when set.
	NewInstructorID *string
	// StartDate / EndDate record the contract period when the assignment
	// carries one; nil leaves the stored value untouched.
	StartDate *time.Time
	EndDate   *time.Time
	// ReserveInstructorID takes one capacity slot (checked against the
	// ceiling) when set.
	ReserveInstructorID *string
	// ReleaseInstructorID frees one slot, e.g. the previous instructor on
	// reassignment or the current one on rejection.
	ReleaseInstructorID *string
}

type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.RequestWithInstructor, error)
	GetAll(ctx context.Context, state string, limit, offset int) ([]models.RequestWithInstructor, int, error)
	ApplyTransition(ctx context.Context, params TransitionParams) error
}

type requestRepository struct {
	*PostgresRepository
}

func NewRequestRepository(db *sql.DB, logger zerolog.Logger) RequestRepository {
	return &requestRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const requestColumns = `
	r.id, r.apprentice_id, r.enterprise_id, r.modality, r.request_state,
	r.instructor_id, r.request_date, r.start_date, r.end_date, r.version,
	r.created_at, r.updated_at,
	COALESCE(i.first_name || ' ' || i.last_name, '') as instructor_name,
	COALESCE(i.email, '') as instructor_email
`

func scanRequest(row interface{ Scan(...any) error }) (*models.RequestWithInstructor, error) {
	request := &models.RequestWithInstructor{}
	err := row.Scan(
		&request.ID,
		&request.ApprenticeID,
		&request.EnterpriseID,
		&request.Modality,
		&request.RequestState,
		&request.InstructorID,
		&request.RequestDate,
		&request.StartDate,
		&request.EndDate,
		&request.Version,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.InstructorName,
		&request.InstructorEmail,
	)
	return request, err
}

func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	query := `
		INSERT INTO requests (
			id, apprentice_id, enterprise_id, modality, request_state,
			instructor_id, request_date, start_date, end_date, version,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.ApprenticeID,
		request.EnterpriseID,
		request.Modality,
		request.RequestState,
		request.InstructorID,
		request.RequestDate,
		request.StartDate,
		request.EndDate,
		request.Version,
		request.CreatedAt,
		request.UpdatedAt,
	)

	return err
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.RequestWithInstructor, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests r
		LEFT JOIN instructors i ON r.instructor_id = i.id
		WHERE r.id = $1
	`

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return request, nil
}

func (r *requestRepository) GetAll(ctx context.Context, state string, limit, offset int) ([]models.RequestWithInstructor, int, error) {
	countQuery := `SELECT COUNT(*) FROM requests r WHERE ($1 = '' OR r.request_state = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, state).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + requestColumns + `
		FROM requests r
		LEFT JOIN instructors i ON r.instructor_id = i.id
		WHERE ($1 = '' OR r.request_state = $1)
		ORDER BY r.request_date DESC, r.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, state, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []models.RequestWithInstructor
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *request)
	}

	return requests, total, rows.Err()
}

// ApplyTransition commits message, state and capacity as one unit. The
// version predicate rejects stale writers: a zero rowcount on a request
// that exists maps to ErrVersionConflict.
func (r *requestRepository) ApplyTransition(ctx context.Context, params TransitionParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if params.ReleaseInstructorID != nil {
		if err := releaseCapacityTx(ctx, tx, *params.ReleaseInstructorID); err != nil {
			return err
		}
	}

	if params.ReserveInstructorID != nil {
		if err := reserveCapacityTx(ctx, tx, *params.ReserveInstructorID); err != nil {
			return err
		}
	}

	updateQuery := `
		UPDATE requests
		SET request_state = $1,
		    instructor_id = COALESCE($2, instructor_id),
		    start_date = COALESCE($3, start_date),
		    end_date = COALESCE($4, end_date),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $5 AND version = $6
	`

	result, err := tx.ExecContext(ctx, updateQuery,
		params.NextState.String(),
		params.NewInstructorID,
		params.StartDate,
		params.EndDate,
		params.RequestID,
		params.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update request state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM requests WHERE id = $1)`, params.RequestID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return workflow.ErrRequestNotFound
		}
		return workflow.ErrVersionConflict
	}

	messageQuery := `
		INSERT INTO messages (id, request_id, content, type_message, whose_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := tx.ExecContext(ctx, messageQuery,
		params.Message.ID,
		params.Message.RequestID,
		params.Message.Content,
		params.Message.TypeMessage,
		params.Message.WhoseMessage,
		params.Message.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		// After a failed commit the effective outcome is unknown to the
		// caller; flag it for reconciliation instead of guessing.
		return fmt.Errorf("%w: %v", workflow.ErrPartialFailure, err)
	}

	return nil
}
