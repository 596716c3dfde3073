package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/domain/repository"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
	"github.com/yourusername/cat-engine/internal/service/catengine"
)

// ReportService предоставляет методы генерации и чтения итоговых отчётов
type ReportService struct {
	engine      *catengine.Engine
	sessionRepo repository.SessionRepository
	itemRepo    repository.ItemRepository
	reportRepo  repository.ReportRepository
}

// NewReportService создает новый сервис отчётов
func NewReportService(
	engine *catengine.Engine,
	sessionRepo repository.SessionRepository,
	itemRepo repository.ItemRepository,
	reportRepo repository.ReportRepository,
) *ReportService {
	return &ReportService{
		engine:      engine,
		sessionRepo: sessionRepo,
		itemRepo:    itemRepo,
		reportRepo:  reportRepo,
	}
}

// GetOrGenerate возвращает отчёт сессии, генерируя его при первом
// обращении. Отчёт неизменяем и 1:1 с сессией: повторные вызовы
// возвращают сохранённый результат. Для незавершённых и прерванных
// сессий — ErrSessionNotComplete.
func (s *ReportService) GetOrGenerate(sessionID string) (*entity.Report, error) {
	report, err := s.reportRepo.GetBySessionID(sessionID)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load report for session %s: %w", sessionID, err)
	}

	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	responses, err := s.sessionRepo.GetResponses(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses for session %s: %w", sessionID, err)
	}

	state := &catengine.SessionState{Session: session, Responses: responses}
	report, err = s.engine.GenerateReport(state)
	if err != nil {
		return nil, err
	}

	if err := s.reportRepo.Save(report); err != nil {
		// Гонка двух параллельных генераций: побеждает первый INSERT,
		// проигравший перечитывает сохранённый отчёт
		if errors.Is(err, apperrors.ErrConflict) {
			return s.reportRepo.GetBySessionID(sessionID)
		}
		return nil, fmt.Errorf("failed to persist report for session %s: %w", sessionID, err)
	}

	log.Printf("[ReportService] Report generated for session %s: theta=%.3f percentile=%.1f",
		sessionID, report.FinalTheta, report.Percentile)
	return report, nil
}
