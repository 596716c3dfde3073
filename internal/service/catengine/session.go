package catengine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// Engine — машина состояний адаптивной сессии. Оркестрирует оценивание
// способности, выбор заданий, учёт экспозиции и правила остановки.
// Движок мутирует только переданное состояние и не держит внутренних
// блокировок: сериализация SubmitResponse по session id — обязанность
// вызывающего слоя. Независимые сессии полностью параллельны.
type Engine struct {
	config   *Config
	deps     *Dependencies
	selector *ItemSelector
	exposure *ExposureTracker
}

// NewEngine создаёт новый адаптивный движок
func NewEngine(config *Config, deps *Dependencies) *Engine {
	exposure := NewExposureTracker(config, deps.Exposure)
	return &Engine{
		config:   config,
		deps:     deps,
		selector: NewItemSelector(config, deps, exposure),
		exposure: exposure,
	}
}

// StartSession создаёт сессию в статусе in_progress с θ = initial_ability
// и предъявляет первое задание (обычно якорное). Пустой пул — ошибка
// конфигурации, фатальная только для этой сессии.
func (e *Engine) StartSession(pool *entity.Pool, examineeID uint, cfg entity.SessionConfig) (*SessionState, error) {
	cfg = e.mergeDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w: %v", apperrors.ErrValidation, err)
	}

	count, err := e.deps.ItemRepo.CountActive(pool.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count active items in pool %d: %w", pool.ID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("pool %d: %w", pool.ID, apperrors.ErrEmptyPool)
	}

	now := time.Now()
	session := &entity.Session{
		ID:             uuid.NewString(),
		PoolID:         pool.ID,
		ExamineeID:     examineeID,
		Config:         cfg,
		AskedItems:     entity.UintArray{},
		TopicCoverage:  entity.TopicCountMap{},
		AbilityHistory: entity.AbilityTrace{},
		Status:         entity.SessionStatusInProgress,
		StartedAt:      now,
	}
	state := &SessionState{Session: session}

	e.exposure.RegisterSession(pool.ID, session.ID)

	first, err := e.selector.SelectNext(state)
	if err != nil {
		// Ни одного пригодного кандидата на первом же шаге —
		// это конфигурация пула, а не штатное истощение
		return nil, fmt.Errorf("pool %d has no administrable items: %w", pool.ID, apperrors.ErrEmptyPool)
	}
	e.setPending(state, first, now)

	log.Printf("[SessionMachine] Session %s started: pool=%d examinee=%d first_item=%d",
		session.ID, pool.ID, examineeID, first.ID)
	return state, nil
}

// SubmitResponse обрабатывает ответ на текущее ожидаемое задание:
// проверяет правильность по ключу, добавляет Response со снапшотом
// параметров, переоценивает (θ, SE) по полной истории, учитывает
// экспозицию, применяет правила остановки и, если сессия продолжается,
// предъявляет следующее задание.
//
// Неверный item_id (дубликат, не тот вопрос) → ErrInvalidSequence,
// терминальная сессия → ErrSessionTerminal; состояние не меняется.
func (e *Engine) SubmitResponse(state *SessionState, itemID uint, rawAnswer string, ts time.Time) error {
	session := state.Session
	if session.IsTerminal() {
		return fmt.Errorf("session %s is %s: %w", session.ID, session.Status, apperrors.ErrSessionTerminal)
	}
	if state.PendingItem == nil || state.PendingItem.ID != itemID {
		return fmt.Errorf("session %s expects a different item: %w", session.ID, apperrors.ErrInvalidSequence)
	}

	item := state.PendingItem
	sequence := session.QuestionsAnswered + 1
	thetaBefore := session.CurrentTheta()

	var latencyMs int64
	if session.PendingSince != nil {
		latencyMs = ts.Sub(*session.PendingSince).Milliseconds()
		if latencyMs < 0 {
			latencyMs = 0
		}
	}

	response := entity.Response{
		SessionID:      session.ID,
		ItemID:         item.ID,
		Sequence:       sequence,
		RawAnswer:      rawAnswer,
		IsCorrect:      item.IsCorrect(rawAnswer),
		ResponseTimeMs: latencyMs,
		ThetaBefore:    thetaBefore,
		ItemA:          item.Discrimination,
		ItemB:          item.Difficulty,
		ItemC:          item.Guessing,
	}

	history := append(append([]entity.Response{}, state.Responses...), response)
	estimator := e.estimatorFor(session, len(history))
	theta, se := estimator.Estimate(history, thetaBefore)

	response.ThetaAfter = theta
	response.SEAfter = se

	// Мутация состояния сессии — только здесь
	state.Responses = append(state.Responses, response)
	session.Theta = &theta
	session.StandardError = &se
	session.AskedItems = append(session.AskedItems, item.ID)
	session.TopicCoverage[item.Topic]++
	session.AbilityHistory = append(session.AbilityHistory, entity.AbilityPoint{Sequence: sequence, Theta: theta})
	session.QuestionsAnswered++
	session.PendingItemID = nil
	session.PendingSince = nil
	state.PendingItem = nil

	e.exposure.Record(item.ID, session.ExamineeID, session.ID, ts)

	if reason, stop := e.evaluateStop(session, se, ts); stop {
		e.complete(session, reason, ts)
		return nil
	}

	next, err := e.selector.SelectNext(state)
	if err != nil {
		if isPoolExhausted(err) {
			// Истощение пула — не ошибка, а полноправная причина остановки
			e.complete(session, entity.StopReasonPoolExhausted, ts)
			return nil
		}
		return fmt.Errorf("failed to select next item for session %s: %w", session.ID, err)
	}
	e.setPending(state, next, ts)
	return nil
}

// AbandonSession — явное внешнее прерывание (отключение экзаменуемого).
// Идемпотентно: прерывание уже терминальной сессии — no-op, не ошибка.
// Для прерванных сессий отчёт не генерируется.
func (e *Engine) AbandonSession(state *SessionState) {
	session := state.Session
	if session.IsTerminal() {
		return
	}
	now := time.Now()
	session.Status = entity.SessionStatusAbandoned
	session.FinishedAt = &now
	session.PendingItemID = nil
	session.PendingSince = nil
	state.PendingItem = nil
	log.Printf("[SessionMachine] Session %s abandoned after %d answers", session.ID, session.QuestionsAnswered)
}

// GenerateReport синтезирует итоговый отчёт завершённой сессии
func (e *Engine) GenerateReport(state *SessionState) (*entity.Report, error) {
	if !state.Session.IsCompleted() {
		return nil, fmt.Errorf("session %s status is %s: %w",
			state.Session.ID, state.Session.Status, apperrors.ErrSessionNotComplete)
	}
	return e.synthesizeReport(state.Session, state.Responses), nil
}

// evaluateStop применяет правила остановки в фиксированном порядке
// приоритета. Истощение пула проверяется отдельно, при выборе
// следующего задания.
func (e *Engine) evaluateStop(session *entity.Session, se float64, ts time.Time) (string, bool) {
	cfg := session.Config

	// 1. Достигнут максимум вопросов
	if session.QuestionsAnswered >= cfg.MaxQuestions {
		return entity.StopReasonMaxQuestions, true
	}

	// 2. Исчерпан лимит времени (если настроен)
	if cfg.MaxTimeSec > 0 && ts.Sub(session.StartedAt) >= time.Duration(cfg.MaxTimeSec)*time.Second {
		return entity.StopReasonTimeLimit, true
	}

	// 3. До минимума вопросов SE-правило не срабатывает
	if session.QuestionsAnswered < cfg.MinQuestions {
		return "", false
	}

	// 4. Достигнута целевая точность
	if se <= cfg.SETarget {
		return entity.StopReasonPrecision, true
	}

	return "", false
}

// complete переводит сессию в терминальный статус completed
func (e *Engine) complete(session *entity.Session, reason string, ts time.Time) {
	session.Status = entity.SessionStatusCompleted
	session.StopReason = reason
	finished := ts
	session.FinishedAt = &finished
	session.PendingItemID = nil
	session.PendingSince = nil
	log.Printf("[SessionMachine] Session %s completed: reason=%s answers=%d theta=%.3f",
		session.ID, reason, session.QuestionsAnswered, session.CurrentTheta())
}

// setPending предъявляет задание и фиксирует момент предъявления
func (e *Engine) setPending(state *SessionState, item *entity.Item, ts time.Time) {
	state.PendingItem = item
	id := item.ID
	state.Session.PendingItemID = &id
	pendingSince := ts
	state.Session.PendingSince = &pendingSince
}

// estimatorFor возвращает стратегию оценивания для текущего размера
// истории: до MinResponsesForMLE ответов MLE нестабилен, используется EAP
func (e *Engine) estimatorFor(session *entity.Session, historyLen int) Estimator {
	method := session.Config.EstimationMethod
	if method == entity.EstimationMLE && historyLen < e.config.MinResponsesForMLE {
		method = entity.EstimationEAP
	}
	return NewEstimator(method, e.config)
}

// mergeDefaults добирает незаданные поля конфигурации сессии из умолчаний движка
func (e *Engine) mergeDefaults(cfg entity.SessionConfig) entity.SessionConfig {
	def := e.config.DefaultSession
	if cfg.MaxQuestions == 0 {
		cfg.MaxQuestions = def.MaxQuestions
	}
	if cfg.MinQuestions == 0 {
		cfg.MinQuestions = def.MinQuestions
	}
	if cfg.SETarget == 0 {
		cfg.SETarget = def.SETarget
	}
	if cfg.EstimationMethod == "" {
		cfg.EstimationMethod = def.EstimationMethod
	}
	if cfg.SelectionMethod == "" {
		cfg.SelectionMethod = def.SelectionMethod
	}
	return cfg
}

func isPoolExhausted(err error) bool {
	return errors.Is(err, apperrors.ErrPoolExhausted)
}
