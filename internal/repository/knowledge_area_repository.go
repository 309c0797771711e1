package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/models"
)

type KnowledgeAreaRepository interface {
	GetAll(ctx context.Context) ([]models.KnowledgeArea, error)
	ResolveName(ctx context.Context, id string) (string, error)
}

type knowledgeAreaRepository struct {
	*PostgresRepository
}

func NewKnowledgeAreaRepository(db *sql.DB, logger zerolog.Logger) KnowledgeAreaRepository {
	return &knowledgeAreaRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *knowledgeAreaRepository) GetAll(ctx context.Context) ([]models.KnowledgeArea, error) {
	query := `SELECT id, name FROM knowledge_areas ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []models.KnowledgeArea
	for rows.Next() {
		var area models.KnowledgeArea
		if err := rows.Scan(&area.ID, &area.Name); err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}

	return areas, rows.Err()
}

// ResolveName returns the area's display name, or "" when the id is
// unknown. Callers treat the lookup as cosmetic and fall back to the raw
// identifier.
func (r *knowledgeAreaRepository) ResolveName(ctx context.Context, id string) (string, error) {
	query := `SELECT name FROM knowledge_areas WHERE id = $1`

	var name string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}

	return name, err
}
