package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/models"
	"github.com/sena-seguimiento/assignment-service/internal/workflow"
)

type InstructorRepository interface {
	Create(ctx context.Context, instructor *models.Instructor) error
	GetByID(ctx context.Context, id string) (*models.InstructorWithArea, error)
	Search(ctx context.Context, query, knowledgeAreaName string, limit, offset int) ([]models.InstructorWithArea, int, error)
	SetLimit(ctx context.Context, id string, newLimit int) (*models.InstructorWithArea, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type instructorRepository struct {
	*PostgresRepository
}

func NewInstructorRepository(db *sql.DB, logger zerolog.Logger) InstructorRepository {
	return &instructorRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const instructorColumns = `
	i.id, i.first_name, i.last_name, i.document, i.email, i.phone,
	i.knowledge_area_id, i.assigned_learners, i.max_assigned_learners,
	i.created_at, i.updated_at,
	k.name as knowledge_area_name
`

func scanInstructor(row interface{ Scan(...any) error }) (*models.InstructorWithArea, error) {
	instructor := &models.InstructorWithArea{}
	err := row.Scan(
		&instructor.ID,
		&instructor.FirstName,
		&instructor.LastName,
		&instructor.Document,
		&instructor.Email,
		&instructor.Phone,
		&instructor.KnowledgeAreaID,
		&instructor.AssignedLearners,
		&instructor.MaxAssignedLearners,
		&instructor.CreatedAt,
		&instructor.UpdatedAt,
		&instructor.KnowledgeAreaName,
	)
	return instructor, err
}

func (r *instructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	query := `
		INSERT INTO instructors (
			id, first_name, last_name, document, email, phone,
			knowledge_area_id, assigned_learners, max_assigned_learners,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		instructor.ID,
		instructor.FirstName,
		instructor.LastName,
		instructor.Document,
		instructor.Email,
		instructor.Phone,
		instructor.KnowledgeAreaID,
		instructor.AssignedLearners,
		instructor.MaxAssignedLearners,
		instructor.CreatedAt,
		instructor.UpdatedAt,
	)

	return err
}

func (r *instructorRepository) GetByID(ctx context.Context, id string) (*models.InstructorWithArea, error) {
	query := `
		SELECT ` + instructorColumns + `
		FROM instructors i
		JOIN knowledge_areas k ON i.knowledge_area_id = k.id
		WHERE i.id = $1
	`

	instructor, err := scanInstructor(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return instructor, nil
}

func (r *instructorRepository) Search(ctx context.Context, query, knowledgeAreaName string, limit, offset int) ([]models.InstructorWithArea, int, error) {
	// Case-insensitive match over name parts and document; empty filters
	// match everything.
	where := `
		WHERE ($1 = ''
			OR i.first_name ILIKE '%' || $1 || '%'
			OR i.last_name ILIKE '%' || $1 || '%'
			OR (i.first_name || ' ' || i.last_name) ILIKE '%' || $1 || '%'
			OR i.document ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR k.name = $2)
	`

	countQuery := `
		SELECT COUNT(*)
		FROM instructors i
		JOIN knowledge_areas k ON i.knowledge_area_id = k.id
	` + where

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, query, knowledgeAreaName).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT ` + instructorColumns + `
		FROM instructors i
		JOIN knowledge_areas k ON i.knowledge_area_id = k.id
	` + where + `
		ORDER BY i.last_name, i.first_name
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, listQuery, query, knowledgeAreaName, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var instructors []models.InstructorWithArea
	for rows.Next() {
		instructor, err := scanInstructor(rows)
		if err != nil {
			return nil, 0, err
		}
		instructors = append(instructors, *instructor)
	}

	return instructors, total, rows.Err()
}

// SetLimit persists a new capacity ceiling. The headroom rule is
// re-checked inside the UPDATE itself: a fast-fail check in the service is
// advisory only, this guard is authoritative even under concurrent
// assignment traffic.
func (r *instructorRepository) SetLimit(ctx context.Context, id string, newLimit int) (*models.InstructorWithArea, error) {
	query := `
		UPDATE instructors
		SET max_assigned_learners = $1, updated_at = NOW()
		WHERE id = $2 AND $1 >= assigned_learners + $3
	`

	result, err := r.db.ExecContext(ctx, query, newLimit, id, models.LimitHeadroom)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		exists, err := r.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, workflow.ErrInstructorNotFound
		}
		return nil, workflow.ErrLimitBelowHeadroom
	}

	return r.GetByID(ctx, id)
}

func (r *instructorRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM instructors WHERE id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}

// reserveCapacityTx atomically takes one slot from an instructor inside an
// open transaction. Zero affected rows means the instructor is missing or
// already at their ceiling; the caller distinguishes the two.
func reserveCapacityTx(ctx context.Context, tx *sql.Tx, instructorID string) error {
	query := `
		UPDATE instructors
		SET assigned_learners = assigned_learners + 1, updated_at = NOW()
		WHERE id = $1 AND assigned_learners < max_assigned_learners
	`

	result, err := tx.ExecContext(ctx, query, instructorID)
	if err != nil {
		return fmt.Errorf("failed to reserve capacity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM instructors WHERE id = $1)`, instructorID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return workflow.ErrInstructorNotFound
		}
		return workflow.ErrCapacityExhausted
	}

	return nil
}

// releaseCapacityTx returns one slot. Clamped at zero so replays can never
// drive the count negative.
func releaseCapacityTx(ctx context.Context, tx *sql.Tx, instructorID string) error {
	query := `
		UPDATE instructors
		SET assigned_learners = GREATEST(assigned_learners - 1, 0), updated_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.ExecContext(ctx, query, instructorID); err != nil {
		return fmt.Errorf("failed to release capacity: %w", err)
	}
	return nil
}
