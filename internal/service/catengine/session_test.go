package catengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// newEngineFixture собирает движок поверх фейков банка и журнала экспозиции
func newEngineFixture(bank *fakeBank, exposure *fakeExposureLog) *Engine {
	return NewEngine(DefaultConfig(), &Dependencies{
		ItemRepo: bank,
		Exposure: exposure,
		RefDist:  StandardNormal{},
	})
}

func testPool() *entity.Pool {
	return &entity.Pool{ID: 1, TenantID: 1, Name: "test pool", Subject: "math"}
}

// answerPending отвечает на текущее задание: ключом при correct, иначе мимо
func answerPending(t *testing.T, engine *Engine, state *SessionState, correct bool) {
	t.Helper()
	item := state.PendingItem
	answer := "wrong"
	if correct {
		answer = item.CorrectAnswer
	}
	assert.NoError(t, engine.SubmitResponse(state, item.ID, answer, time.Now()))
}

func TestEngine_StartSession(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 1.0, -1.0, 0.0, "algebra"),
		testItem(2, 1.0, 0.0, 0.0, "geometry"),
	)
	exposure := newFakeExposureLog()
	engine := newEngineFixture(bank, exposure)

	state, err := engine.StartSession(testPool(), 42, baseConfig())

	assert.NoError(t, err)
	assert.Equal(t, entity.SessionStatusInProgress, state.Session.Status)
	assert.NotEmpty(t, state.Session.ID)
	assert.NotNil(t, state.PendingItem, "Первое задание должно быть предъявлено сразу")
	assert.NotNil(t, state.Session.PendingSince)
	assert.Nil(t, state.Session.Theta, "θ не определена до первого ответа")
	assert.Equal(t, 1, exposure.sessions, "Старт сессии учитывается в знаменателе exposure rate")
}

func TestEngine_StartSession_EmptyPool(t *testing.T) {
	engine := newEngineFixture(newFakeBank(), newFakeExposureLog())

	_, err := engine.StartSession(testPool(), 42, baseConfig())

	assert.ErrorIs(t, err, apperrors.ErrEmptyPool)
}

func TestEngine_StartSession_InvalidConfig(t *testing.T) {
	bank := newFakeBank(testItem(1, 1.0, 0.0, 0.0, "algebra"))
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := baseConfig()
	cfg.MinQuestions = 50 // Больше max_questions

	_, err := engine.StartSession(testPool(), 42, cfg)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEngine_SubmitResponse_WrongItemRejected(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 1.0, 0.0, 0.0, "algebra"),
		testItem(2, 1.0, 0.5, 0.0, "algebra"),
	)
	engine := newEngineFixture(bank, newFakeExposureLog())
	state, err := engine.StartSession(testPool(), 42, baseConfig())
	assert.NoError(t, err)

	wrongID := uint(1)
	if state.PendingItem.ID == 1 {
		wrongID = 2
	}

	err = engine.SubmitResponse(state, wrongID, "whatever", time.Now())

	assert.ErrorIs(t, err, apperrors.ErrInvalidSequence)
	assert.Equal(t, 0, state.Session.QuestionsAnswered, "Состояние не должно меняться при отклонённом ответе")
}

func TestEngine_SubmitResponse_TerminalRejected(t *testing.T) {
	bank := newFakeBank(testItem(1, 1.0, 0.0, 0.0, "algebra"))
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := baseConfig()
	cfg.MaxQuestions = 1
	cfg.MinQuestions = 1
	state, err := engine.StartSession(testPool(), 42, cfg)
	assert.NoError(t, err)

	answerPending(t, engine, state, true)
	assert.Equal(t, entity.SessionStatusCompleted, state.Session.Status)

	err = engine.SubmitResponse(state, 1, "correct", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrSessionTerminal)
}

// Сквозной сценарий: пул из 5 заданий, экзаменуемый отвечает верно
// только на задания с b <= 0. Ожидаем остановку по максимуму вопросов
// после ровно 5 заданий и итоговую θ в диапазоне [-1, 0.5].
func TestEngine_ConcreteAdaptiveRun(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 1.0, -1.0, 0.2, "easy"),
		testItem(2, 1.2, 0.0, 0.15, "medium"),
		testItem(3, 0.9, 1.0, 0.1, "hard"),
		testItem(4, 1.5, 0.5, 0.0, "medium"),
		testItem(5, 1.0, 2.0, 0.1, "hard"),
	)
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := entity.SessionConfig{
		MaxQuestions:     5,
		MinQuestions:     5,
		SETarget:         0.01, // Недостижима на 5 заданиях
		EstimationMethod: entity.EstimationEAP,
		SelectionMethod:  entity.SelectionMaxInformation,
	}

	state, err := engine.StartSession(testPool(), 42, cfg)
	assert.NoError(t, err)

	for state.Session.Status == entity.SessionStatusInProgress {
		item := state.PendingItem
		correct := item.Difficulty <= 0
		answerPending(t, engine, state, correct)
	}

	session := state.Session
	assert.Equal(t, entity.SessionStatusCompleted, session.Status)
	assert.Equal(t, entity.StopReasonMaxQuestions, session.StopReason)
	assert.Equal(t, 5, session.QuestionsAnswered, "Сессия должна пройти ровно 5 заданий")
	assert.Len(t, session.AskedItems, 5)
	assert.NotNil(t, session.FinishedAt)

	theta := session.CurrentTheta()
	assert.GreaterOrEqual(t, theta, -1.0, "Итоговая θ должна лежать между сложностями верных и неверных ответов")
	assert.LessOrEqual(t, theta, 0.5)

	// Инвариант неповторения: каждый id встречается ровно один раз
	seen := map[uint]bool{}
	for _, id := range session.AskedItems {
		assert.False(t, seen[id], "Задание не должно предъявляться дважды")
		seen[id] = true
	}

	// Контигуозность: sequence ровно 1..N и θ_after[n] == θ_before[n+1]
	for i, r := range state.Responses {
		assert.Equal(t, i+1, r.Sequence)
		if i > 0 {
			assert.Equal(t, state.Responses[i-1].ThetaAfter, r.ThetaBefore)
		}
	}

	// История способности ведётся по шагам
	assert.Len(t, session.AbilityHistory, 5)
}

func TestEngine_PoolExhaustedStop(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 1.0, 0.0, 0.0, "algebra"),
		testItem(2, 1.0, 0.5, 0.0, "algebra"),
	)
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := baseConfig()
	cfg.MaxQuestions = 10
	cfg.MinQuestions = 1
	cfg.SETarget = 0.0001 // Недостижима

	state, err := engine.StartSession(testPool(), 42, cfg)
	assert.NoError(t, err)

	answerPending(t, engine, state, true)
	answerPending(t, engine, state, false)

	assert.Equal(t, entity.SessionStatusCompleted, state.Session.Status)
	assert.Equal(t, entity.StopReasonPoolExhausted, state.Session.StopReason,
		"Исчерпание банка — штатная причина остановки, а не ошибка")
}

func TestEngine_PrecisionStop(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 2.0, 0.0, 0.0, "algebra"),
		testItem(2, 2.0, 0.2, 0.0, "algebra"),
		testItem(3, 2.0, -0.2, 0.0, "algebra"),
		testItem(4, 2.0, 0.4, 0.0, "algebra"),
		testItem(5, 2.0, -0.4, 0.0, "algebra"),
		testItem(6, 2.0, 0.6, 0.0, "algebra"),
	)
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := baseConfig()
	cfg.MaxQuestions = 6
	cfg.MinQuestions = 2
	cfg.SETarget = 0.95 // Достижима за пару информативных заданий

	state, err := engine.StartSession(testPool(), 42, cfg)
	assert.NoError(t, err)

	answered := 0
	for state.Session.Status == entity.SessionStatusInProgress {
		answerPending(t, engine, state, answered%2 == 0)
		answered++
	}

	assert.Equal(t, entity.StopReasonPrecision, state.Session.StopReason)
	assert.GreaterOrEqual(t, state.Session.QuestionsAnswered, 2,
		"SE-правило не должно срабатывать до min_questions")
	assert.LessOrEqual(t, *state.Session.StandardError, 0.95)
}

func TestEngine_TimeLimitStop(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 1.0, 0.0, 0.0, "algebra"),
		testItem(2, 1.0, 0.5, 0.0, "algebra"),
	)
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := baseConfig()
	cfg.MaxTimeSec = 60
	cfg.MinQuestions = 2

	state, err := engine.StartSession(testPool(), 42, cfg)
	assert.NoError(t, err)

	// Ответ пришёл через 2 минуты после старта
	late := state.Session.StartedAt.Add(2 * time.Minute)
	err = engine.SubmitResponse(state, state.PendingItem.ID, "correct", late)

	assert.NoError(t, err)
	assert.Equal(t, entity.SessionStatusCompleted, state.Session.Status)
	assert.Equal(t, entity.StopReasonTimeLimit, state.Session.StopReason,
		"Лимит времени имеет приоритет над min_questions")
}

func TestEngine_StoppingPriority_MaxQuestionsOverTime(t *testing.T) {
	bank := newFakeBank(testItem(1, 1.0, 0.0, 0.0, "algebra"))
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := baseConfig()
	cfg.MaxQuestions = 1
	cfg.MinQuestions = 1
	cfg.MaxTimeSec = 60

	state, err := engine.StartSession(testPool(), 42, cfg)
	assert.NoError(t, err)

	// Одновременно достигнуты и максимум вопросов, и лимит времени
	late := state.Session.StartedAt.Add(2 * time.Minute)
	assert.NoError(t, engine.SubmitResponse(state, state.PendingItem.ID, "correct", late))

	assert.Equal(t, entity.StopReasonMaxQuestions, state.Session.StopReason,
		"Правила остановки применяются в фиксированном порядке приоритета")
}

func TestEngine_AbandonIdempotent(t *testing.T) {
	bank := newFakeBank(testItem(1, 1.0, 0.0, 0.0, "algebra"))
	engine := newEngineFixture(bank, newFakeExposureLog())

	state, err := engine.StartSession(testPool(), 42, baseConfig())
	assert.NoError(t, err)

	engine.AbandonSession(state)
	assert.Equal(t, entity.SessionStatusAbandoned, state.Session.Status)
	finishedAt := *state.Session.FinishedAt

	// Повторное прерывание — no-op
	engine.AbandonSession(state)
	assert.Equal(t, entity.SessionStatusAbandoned, state.Session.Status)
	assert.Equal(t, finishedAt, *state.Session.FinishedAt)
}

func TestEngine_ReportRequiresCompletion(t *testing.T) {
	bank := newFakeBank(testItem(1, 1.0, 0.0, 0.0, "algebra"))
	engine := newEngineFixture(bank, newFakeExposureLog())

	state, err := engine.StartSession(testPool(), 42, baseConfig())
	assert.NoError(t, err)

	_, err = engine.GenerateReport(state)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotComplete, "Отчёт по идущей сессии запрещён")

	engine.AbandonSession(state)
	_, err = engine.GenerateReport(state)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotComplete, "Отчёт по прерванной сессии запрещён")
}

func TestEngine_ExposureRecordedOnSubmit(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 1.0, 0.0, 0.0, "algebra"),
		testItem(2, 1.0, 0.5, 0.0, "algebra"),
	)
	exposure := newFakeExposureLog()
	engine := newEngineFixture(bank, exposure)

	state, err := engine.StartSession(testPool(), 42, baseConfig())
	assert.NoError(t, err)

	first := state.PendingItem.ID
	answerPending(t, engine, state, true)

	assert.Equal(t, []uint{first}, exposure.recorded, "Экспозиция фиксируется в момент ответа")
}

func TestEngine_ResponseLatencyMeasured(t *testing.T) {
	bank := newFakeBank(testItem(1, 1.0, 0.0, 0.0, "algebra"))
	engine := newEngineFixture(bank, newFakeExposureLog())

	cfg := baseConfig()
	cfg.MaxQuestions = 1
	cfg.MinQuestions = 1
	state, err := engine.StartSession(testPool(), 42, cfg)
	assert.NoError(t, err)

	ts := state.Session.PendingSince.Add(1500 * time.Millisecond)
	assert.NoError(t, engine.SubmitResponse(state, 1, "correct", ts))

	assert.Equal(t, int64(1500), state.Responses[0].ResponseTimeMs)
}
