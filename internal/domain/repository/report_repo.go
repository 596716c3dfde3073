package repository

import (
	"github.com/yourusername/cat-engine/internal/domain/entity"
)

// ReportRepository определяет методы персистентности отчётов (1:1 с сессией)
type ReportRepository interface {
	Save(report *entity.Report) error
	GetBySessionID(sessionID string) (*entity.Report, error)
}
