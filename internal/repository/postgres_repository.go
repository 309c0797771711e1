package repository

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// PostgresRepository is the shared base embedded by every concrete
// repository: one pool, one logger.
type PostgresRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPostgresRepository(db *sql.DB, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}
