package catengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/cat-engine/internal/domain/entity"
)

func TestStandardNormal_CDF(t *testing.T) {
	dist := StandardNormal{}

	assert.InDelta(t, 0.5, dist.CDF(0), 1e-9, "Медиана стандартного нормального — 0")
	assert.InDelta(t, 0.975, dist.CDF(1.96), 0.001)
	assert.InDelta(t, 0.025, dist.CDF(-1.96), 0.001)
	assert.Less(t, dist.CDF(-4), 0.001)
	assert.Greater(t, dist.CDF(4), 0.999)
}

// completedState собирает завершённую сессию с ответами по двум темам:
// по algebra всё верно, по geometry всё неверно
func completedState(bank *fakeBank) *SessionState {
	theta, se := 0.5, 0.4
	finished := time.Now()
	session := &entity.Session{
		ID:                "99999999-8888-7777-6666-555555555555",
		PoolID:            1,
		ExamineeID:        42,
		Config:            baseConfig(),
		Theta:             &theta,
		StandardError:     &se,
		AskedItems:        entity.UintArray{1, 2, 3, 4},
		TopicCoverage:     entity.TopicCountMap{"algebra": 2, "geometry": 2},
		QuestionsAnswered: 4,
		Status:            entity.SessionStatusCompleted,
		StopReason:        entity.StopReasonMaxQuestions,
		StartedAt:         finished.Add(-10 * time.Minute),
		FinishedAt:        &finished,
	}

	responses := []entity.Response{
		{SessionID: session.ID, ItemID: 1, Sequence: 1, IsCorrect: true, ThetaBefore: 0, ItemA: 1.0, ItemB: -0.5, ItemC: 0.1},
		{SessionID: session.ID, ItemID: 2, Sequence: 2, IsCorrect: true, ThetaBefore: 0.3, ItemA: 1.4, ItemB: 0.0, ItemC: 0.1},
		{SessionID: session.ID, ItemID: 3, Sequence: 3, IsCorrect: false, ThetaBefore: 0.5, ItemA: 1.0, ItemB: 0.5, ItemC: 0.1},
		{SessionID: session.ID, ItemID: 4, Sequence: 4, IsCorrect: false, ThetaBefore: 0.4, ItemA: 1.2, ItemB: 1.0, ItemC: 0.1},
	}
	return &SessionState{Session: session, Responses: responses}
}

func reportBank() *fakeBank {
	return newFakeBank(
		testItem(1, 1.0, -0.5, 0.1, "algebra"),
		testItem(2, 1.4, 0.0, 0.1, "algebra"),
		testItem(3, 1.0, 0.5, 0.1, "geometry"),
		testItem(4, 1.2, 1.0, 0.1, "geometry"),
	)
}

func TestGenerateReport_TopicBreakdown(t *testing.T) {
	engine := newEngineFixture(reportBank(), newFakeExposureLog())
	state := completedState(reportBank())

	report, err := engine.GenerateReport(state)
	assert.NoError(t, err)

	algebra := report.TopicBreakdown["algebra"]
	geometry := report.TopicBreakdown["geometry"]

	assert.Equal(t, 2, algebra.Asked)
	assert.Equal(t, 2, algebra.Correct)
	assert.InDelta(t, 1.0, algebra.WeightedScore, 1e-9, "Все верные — взвешенный скор 1")

	assert.Equal(t, 2, geometry.Asked)
	assert.Equal(t, 0, geometry.Correct)
	assert.InDelta(t, 0.0, geometry.WeightedScore, 1e-9, "Все неверные — взвешенный скор 0")
}

func TestGenerateReport_StrengthsAndWeaknesses(t *testing.T) {
	engine := newEngineFixture(reportBank(), newFakeExposureLog())
	state := completedState(reportBank())

	report, err := engine.GenerateReport(state)
	assert.NoError(t, err)

	// Скоры 1.0 и 0.0: mean=0.5, sd=0.5, порог 1 SD — обе темы классифицируются
	assert.Equal(t, entity.StringArray{"algebra"}, report.Strengths)
	assert.Equal(t, entity.StringArray{"geometry"}, report.Weaknesses)
	assert.Equal(t, entity.StringArray{"geometry"}, report.RecommendedTopics,
		"Слабые темы рекомендуются для дальнейшей работы")
}

func TestGenerateReport_PercentileFromReferenceDistribution(t *testing.T) {
	engine := newEngineFixture(reportBank(), newFakeExposureLog())
	state := completedState(reportBank())

	report, err := engine.GenerateReport(state)
	assert.NoError(t, err)

	// θ = 0.5 → Φ(0.5)·100 ≈ 69.1
	assert.InDelta(t, 69.1, report.Percentile, 0.5)
	assert.Equal(t, 0.5, report.FinalTheta)
	assert.Equal(t, 0.4, report.FinalSE)
	assert.Equal(t, 0.5, report.RecommendedDifficulty,
		"Рекомендуемая сложность — на уровне итоговой способности")
}

func TestGenerateReport_ConsistencyMetric(t *testing.T) {
	engine := newEngineFixture(reportBank(), newFakeExposureLog())
	state := completedState(reportBank())

	report, err := engine.GenerateReport(state)
	assert.NoError(t, err)

	// Ответы хорошо согласованы с моделью (верно на лёгких, неверно на
	// трудных) — остаток должен быть умеренным и не флаговаться
	assert.GreaterOrEqual(t, report.Consistency, 0.0)
	assert.LessOrEqual(t, report.Consistency, 1.0)
	assert.False(t, report.ConsistencyFlagged,
		"Согласованный паттерн не должен получать флаг ручной проверки")
}

func TestGenerateReport_InconsistentPatternFlagged(t *testing.T) {
	engine := newEngineFixture(reportBank(), newFakeExposureLog())
	state := completedState(reportBank())

	// Инвертируем правильность: неверно на лёгких при высокой θ,
	// верно на трудных — сигнал возможного угадывания
	for i := range state.Responses {
		state.Responses[i].IsCorrect = !state.Responses[i].IsCorrect
		state.Responses[i].ThetaBefore = 2.0
	}

	report, err := engine.GenerateReport(state)
	assert.NoError(t, err)

	assert.True(t, report.ConsistencyFlagged,
		"Паттерн, противоречащий модели, должен флаговаться")
}

func TestGenerateReport_SingleTopicNoClassification(t *testing.T) {
	bank := newFakeBank(
		testItem(1, 1.0, 0.0, 0.0, "algebra"),
		testItem(2, 1.0, 0.5, 0.0, "algebra"),
	)
	engine := newEngineFixture(bank, newFakeExposureLog())
	state := completedState(bank)
	state.Responses = state.Responses[:2] // Только algebra
	state.Session.AskedItems = entity.UintArray{1, 2}
	state.Session.TopicCoverage = entity.TopicCountMap{"algebra": 2}
	state.Session.QuestionsAnswered = 2

	report, err := engine.GenerateReport(state)
	assert.NoError(t, err)

	assert.Empty(t, report.Strengths, "Одна тема — классификация сильных/слабых не определена")
	assert.Empty(t, report.Weaknesses)
}
