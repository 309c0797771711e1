package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/models"
)

// MessageRepository is the append-only ledger store. Deliberately no
// update or delete: the audit guarantee of the ledger depends on it.
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	GetByRequestID(ctx context.Context, requestID string) ([]models.Message, error)
	LatestByAuthor(ctx context.Context, requestID string, author models.Role) (*models.Message, error)
	HasRejectionFrom(ctx context.Context, requestID string, author models.Role) (bool, error)
}

type messageRepository struct {
	*PostgresRepository
}

func NewMessageRepository(db *sql.DB, logger zerolog.Logger) MessageRepository {
	return &messageRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *messageRepository) Append(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (id, request_id, content, type_message, whose_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.RequestID,
		message.Content,
		message.TypeMessage,
		message.WhoseMessage,
		message.CreatedAt,
	)

	return err
}

func (r *messageRepository) GetByRequestID(ctx context.Context, requestID string) ([]models.Message, error) {
	query := `
		SELECT id, request_id, content, type_message, whose_message, created_at
		FROM messages
		WHERE request_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		err := rows.Scan(
			&message.ID,
			&message.RequestID,
			&message.Content,
			&message.TypeMessage,
			&message.WhoseMessage,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *messageRepository) LatestByAuthor(ctx context.Context, requestID string, author models.Role) (*models.Message, error) {
	query := `
		SELECT id, request_id, content, type_message, whose_message, created_at
		FROM messages
		WHERE request_id = $1 AND whose_message = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	message := &models.Message{}
	err := r.db.QueryRowContext(ctx, query, requestID, author.String()).Scan(
		&message.ID,
		&message.RequestID,
		&message.Content,
		&message.TypeMessage,
		&message.WhoseMessage,
		&message.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return message, err
}

func (r *messageRepository) HasRejectionFrom(ctx context.Context, requestID string, author models.Role) (bool, error) {
	// Matches both RECHAZADO and RECHAZADA spellings.
	query := `
		SELECT EXISTS(
			SELECT 1 FROM messages
			WHERE request_id = $1
			  AND whose_message = $2
			  AND UPPER(type_message) LIKE '%RECHAZAD%'
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, requestID, author.String()).Scan(&exists)
	return exists, err
}
