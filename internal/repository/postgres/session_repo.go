package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Save создает или обновляет сессию целиком
func (r *SessionRepo) Save(session *entity.Session) error {
	return r.db.Save(session).Error
}

// GetByID возвращает сессию по ID
func (r *SessionRepo) GetByID(id string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// AppendResponse добавляет ответ (append-only).
// Уникальный индекс (session_id, sequence) превращает дубликат или гонку
// параллельных сабмитов в ErrConflict, а не в потерянное обновление.
func (r *SessionRepo) AppendResponse(response *entity.Response) error {
	err := r.db.Create(response).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("response #%d for session %s: %w",
				response.Sequence, response.SessionID, apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

// GetResponses возвращает ответы сессии в порядке предъявления
func (r *SessionRepo) GetResponses(sessionID string) ([]entity.Response, error) {
	var responses []entity.Response
	err := r.db.Where("session_id = ?", sessionID).Order("sequence").Find(&responses).Error
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
