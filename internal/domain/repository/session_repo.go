package repository

import (
	"github.com/yourusername/cat-engine/internal/domain/entity"
)

// SessionRepository определяет методы персистентности сессий.
// Движок возвращает обновлённое состояние в памяти; сохранение —
// обязанность вызывающего сервиса.
type SessionRepository interface {
	Save(session *entity.Session) error
	GetByID(id string) (*entity.Session, error)

	// AppendResponse добавляет ответ (append-only). Дубликат
	// (session_id, sequence) должен приводить к ошибке уникальности БД.
	AppendResponse(response *entity.Response) error

	// GetResponses возвращает ответы сессии в порядке sequence
	GetResponses(sessionID string) ([]entity.Response, error)
}
