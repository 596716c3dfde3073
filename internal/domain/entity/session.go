package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Константы статусов сессии. in_progress — единственный нетерминальный статус.
const (
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusAbandoned  = "abandoned"
)

// Причины остановки сессии (в порядке приоритета правил остановки)
const (
	StopReasonMaxQuestions  = "max_questions_reached"
	StopReasonTimeLimit     = "time_limit_reached"
	StopReasonPrecision     = "precision_achieved"
	StopReasonPoolExhausted = "pool_exhausted"
)

// Методы оценивания способности (закрытый набор стратегий)
const (
	EstimationMLE = "mle"
	EstimationEAP = "eap"
)

// Методы выбора следующего задания
const (
	SelectionMaxInformation = "max_information"
	SelectionRandom         = "random"
)

// SessionConfig — конфигурация сессии, снапшотится при старте и далее
// не меняется. Хранится JSONB-колонкой.
type SessionConfig struct {
	MaxQuestions      int     `json:"max_questions"`
	MaxTimeSec        int     `json:"max_time_sec"` // 0 — лимит времени отключён
	SETarget          float64 `json:"se_target"`
	MinQuestions      int     `json:"min_questions"` // До этого порога SE-правило не срабатывает
	InitialAbility    float64 `json:"initial_ability"`
	EstimationMethod  string  `json:"estimation_method"`
	SelectionMethod   string  `json:"selection_method"`
	ExposureControl   bool    `json:"exposure_control"`
	PreventRepetition bool    `json:"prevent_repetition"`
	TopicBalancing    bool    `json:"topic_balancing"`
	MaxPerTopic       int     `json:"max_per_topic"` // 0 — жёсткого лимита на тему нет

	// AnchorItems — фиксированные задания на заданных позициях
	// (номер вопроса, 1-indexed → ID задания). Обычно якорь на позиции 1.
	AnchorItems map[int]uint `json:"anchor_items,omitempty"`
}

// Scan реализует интерфейс sql.Scanner для SessionConfig
func (c *SessionConfig) Scan(value interface{}) error {
	return scanJSONB(value, c, func() { *c = SessionConfig{} })
}

// Value реализует интерфейс driver.Valuer для SessionConfig
func (c SessionConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Validate проверяет конфигурацию на старте сессии
func (c *SessionConfig) Validate() error {
	if c.MaxQuestions <= 0 {
		return fmt.Errorf("max_questions must be positive, got %d", c.MaxQuestions)
	}
	if c.SETarget < 0 {
		return fmt.Errorf("se_target must be non-negative, got %f", c.SETarget)
	}
	if c.MinQuestions < 0 || c.MinQuestions > c.MaxQuestions {
		return fmt.Errorf("min_questions must be in [0, max_questions], got %d", c.MinQuestions)
	}
	switch c.EstimationMethod {
	case EstimationMLE, EstimationEAP:
	default:
		return fmt.Errorf("unknown estimation method %q", c.EstimationMethod)
	}
	switch c.SelectionMethod {
	case SelectionMaxInformation, SelectionRandom:
	default:
		return fmt.Errorf("unknown selection method %q", c.SelectionMethod)
	}
	return nil
}

// Session представляет одну адаптивную попытку тестирования: один
// экзаменуемый против одного пула. Мутируется исключительно машиной
// состояний движка; после терминального статуса неизменяема
// (кроме связи с отчётом).
type Session struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"` // UUID
	PoolID     uint   `gorm:"not null;index" json:"pool_id"`
	ExamineeID uint   `gorm:"not null;index" json:"examinee_id"`

	Config SessionConfig `gorm:"type:jsonb;not null" json:"config"`

	// Theta/StandardError определены (не NULL) только после первого ответа
	Theta         *float64 `json:"theta,omitempty"`
	StandardError *float64 `json:"standard_error,omitempty"`

	AskedItems        UintArray     `gorm:"type:jsonb;not null" json:"asked_items"`
	TopicCoverage     TopicCountMap `gorm:"type:jsonb;not null" json:"topic_coverage"`
	AbilityHistory    AbilityTrace  `gorm:"type:jsonb;not null" json:"ability_history"`
	QuestionsAnswered int           `gorm:"not null;default:0" json:"questions_answered"`

	// PendingItemID — задание, предъявленное и ожидающее ответа
	PendingItemID *uint `json:"pending_item_id,omitempty"`
	// PendingSince — момент предъявления текущего задания (для латентности ответа)
	PendingSince *time.Time `json:"pending_since,omitempty"`

	Status     string     `gorm:"size:20;not null;default:'in_progress';index" json:"status"`
	StopReason string     `gorm:"size:30;not null;default:''" json:"stop_reason,omitempty"`
	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Session) TableName() string {
	return "sessions"
}

// IsTerminal проверяет, находится ли сессия в терминальном статусе
func (s *Session) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusAbandoned
}

// IsCompleted проверяет, завершена ли сессия штатно
func (s *Session) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

// CurrentTheta возвращает текущую оценку способности
// (initial_ability, пока нет ни одного ответа)
func (s *Session) CurrentTheta() float64 {
	if s.Theta == nil {
		return s.Config.InitialAbility
	}
	return *s.Theta
}
