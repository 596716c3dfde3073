package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
	"github.com/yourusername/cat-engine/internal/service/catengine"
)

// stubReportRepo — отчёты в памяти с уникальностью по session id
type stubReportRepo struct {
	reports map[string]entity.Report
	saves   int
	// raceWinner имитирует проигрыш гонки параллельной генерации:
	// к моменту нашего INSERT отчёт победителя уже закоммичен,
	// уникальный индекс возвращает конфликт
	raceWinner *entity.Report
}

func newStubReportRepo() *stubReportRepo {
	return &stubReportRepo{reports: map[string]entity.Report{}}
}

func (r *stubReportRepo) Save(report *entity.Report) error {
	r.saves++
	if r.raceWinner != nil {
		r.reports[r.raceWinner.SessionID] = *r.raceWinner
		r.raceWinner = nil
	}
	if _, exists := r.reports[report.SessionID]; exists {
		return fmt.Errorf("report for session %s: %w", report.SessionID, apperrors.ErrConflict)
	}
	r.reports[report.SessionID] = *report
	return nil
}

func (r *stubReportRepo) GetBySessionID(sessionID string) (*entity.Report, error) {
	report, ok := r.reports[sessionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &report, nil
}

// newReportServiceFixture собирает сервис отчётов вокруг уже
// завершённой сессии, прогнанной через SessionService
func newReportServiceFixture(t *testing.T) (*ReportService, *stubReportRepo, string) {
	t.Helper()

	itemRepo := newStubItemRepo(
		serviceTestItem(1, -1.0),
		serviceTestItem(2, 0.0),
		serviceTestItem(3, 1.0),
	)
	poolRepo := newStubPoolRepo(entity.Pool{ID: 1, TenantID: 1, Name: "math"})
	sessionRepo := newStubSessionRepo()
	reportRepo := newStubReportRepo()

	engine := catengine.NewEngine(catengine.DefaultConfig(), &catengine.Dependencies{
		ItemRepo: itemRepo,
		Exposure: stubExposureStore{},
		RefDist:  catengine.StandardNormal{},
	})
	sessions := NewSessionService(engine, poolRepo, sessionRepo, itemRepo)

	started, err := sessions.Start(1, 42, serviceSessionConfig())
	assert.NoError(t, err)
	state := started
	for state.Session.Status == entity.SessionStatusInProgress {
		state, err = sessions.Submit(started.Session.ID, *state.Session.PendingItemID, "correct")
		assert.NoError(t, err)
	}
	assert.Equal(t, entity.SessionStatusCompleted, state.Session.Status)

	return NewReportService(engine, sessionRepo, itemRepo, reportRepo), reportRepo, started.Session.ID
}

// ============================================================================
// Тесты ReportService
// ============================================================================

func TestReportService_GeneratesOnFirstRequest(t *testing.T) {
	svc, reportRepo, sessionID := newReportServiceFixture(t)

	report, err := svc.GetOrGenerate(sessionID)

	assert.NoError(t, err)
	assert.Equal(t, sessionID, report.SessionID)
	assert.Contains(t, report.TopicBreakdown, "algebra")

	saved, ok := reportRepo.reports[sessionID]
	assert.True(t, ok, "Сгенерированный отчёт должен быть сохранён")
	assert.Equal(t, report.FinalTheta, saved.FinalTheta)
}

func TestReportService_SecondCallReturnsStoredReport(t *testing.T) {
	svc, reportRepo, sessionID := newReportServiceFixture(t)

	first, err := svc.GetOrGenerate(sessionID)
	assert.NoError(t, err)
	savesAfterFirst := reportRepo.saves

	// Маркер в хранилище: повторный вызов обязан вернуть сохранённый
	// отчёт, а не перегенерировать
	marked := reportRepo.reports[sessionID]
	marked.Percentile = -99
	reportRepo.reports[sessionID] = marked

	second, err := svc.GetOrGenerate(sessionID)
	assert.NoError(t, err)
	assert.Equal(t, -99.0, second.Percentile, "Отчёт неизменяем: читается сохранённый")
	assert.Equal(t, savesAfterFirst, reportRepo.saves)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestReportService_RequiresCompletedSession(t *testing.T) {
	itemRepo := newStubItemRepo(serviceTestItem(1, 0), serviceTestItem(2, 0.5))
	poolRepo := newStubPoolRepo(entity.Pool{ID: 1, TenantID: 1, Name: "math"})
	sessionRepo := newStubSessionRepo()

	engine := catengine.NewEngine(catengine.DefaultConfig(), &catengine.Dependencies{
		ItemRepo: itemRepo,
		Exposure: stubExposureStore{},
		RefDist:  catengine.StandardNormal{},
	})
	sessions := NewSessionService(engine, poolRepo, sessionRepo, itemRepo)
	reports := NewReportService(engine, sessionRepo, itemRepo, newStubReportRepo())

	started, err := sessions.Start(1, 42, serviceSessionConfig())
	assert.NoError(t, err)

	_, err = reports.GetOrGenerate(started.Session.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotComplete, "Отчёт по активной сессии запрещён")

	_, err = sessions.Abandon(started.Session.ID)
	assert.NoError(t, err)

	_, err = reports.GetOrGenerate(started.Session.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotComplete, "Отчёт по прерванной сессии запрещён")
}

func TestReportService_UnknownSession(t *testing.T) {
	engine := catengine.NewEngine(catengine.DefaultConfig(), &catengine.Dependencies{
		ItemRepo: newStubItemRepo(),
		Exposure: stubExposureStore{},
		RefDist:  catengine.StandardNormal{},
	})
	svc := NewReportService(engine, newStubSessionRepo(), newStubItemRepo(), newStubReportRepo())

	_, err := svc.GetOrGenerate("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReportService_ConflictRaceRereadsStoredReport(t *testing.T) {
	svc, reportRepo, sessionID := newReportServiceFixture(t)

	// Первое чтение видит пустое хранилище, но к моменту INSERT
	// отчёт победителя уже закоммичен
	reportRepo.raceWinner = &entity.Report{SessionID: sessionID, Percentile: 77}

	report, err := svc.GetOrGenerate(sessionID)

	assert.NoError(t, err)
	assert.Equal(t, 77.0, report.Percentile, "Проигравший гонку перечитывает отчёт победителя")
}
