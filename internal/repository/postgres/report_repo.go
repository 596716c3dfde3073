package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// ReportRepo реализует repository.ReportRepository
type ReportRepo struct {
	db *gorm.DB
}

// NewReportRepo создает новый репозиторий отчётов
func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Save сохраняет отчёт. Уникальный индекс session_id гарантирует
// не более одного отчёта на сессию.
func (r *ReportRepo) Save(report *entity.Report) error {
	err := r.db.Create(report).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("report for session %s already exists: %w",
				report.SessionID, apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

// GetBySessionID возвращает отчёт сессии
func (r *ReportRepo) GetBySessionID(sessionID string) (*entity.Report, error) {
	var report entity.Report
	err := r.db.Where("session_id = ?", sessionID).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}
