package entity

import (
	"time"
)

// Когнитивные уровни заданий (по Блуму, усечённый набор)
const (
	CognitiveKnowledge   = "knowledge"
	CognitiveApplication = "application"
	CognitiveAnalysis    = "analysis"
)

// Item представляет задание банка с IRT-параметрами трёхпараметрической
// логистической модели (3PL). После публикации задание неизменяемо в рамках
// сессии: параметры снапшотятся в Response на момент предъявления,
// поэтому рекалибровка не ломает исторические ответы.
type Item struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PoolID uint `gorm:"not null;index" json:"pool_id"`

	// Discrimination (a) — дискриминативность, типично [0.1, 2.5]
	Discrimination float64 `gorm:"not null;default:1.0" json:"discrimination"`
	// Difficulty (b) — сложность на шкале θ, типично [-3, 3]
	Difficulty float64 `gorm:"not null;default:0" json:"difficulty"`
	// Guessing (c) — вероятность угадывания, [0, 0.3]
	Guessing float64 `gorm:"not null;default:0" json:"guessing"`

	Topic          string `gorm:"size:100;not null;index" json:"topic"`
	CognitiveLevel string `gorm:"size:20;not null;default:'application'" json:"cognitive_level"`
	Stem           string `gorm:"size:2000;not null;default:''" json:"stem"`
	CorrectAnswer  string `gorm:"size:255;not null" json:"-"` // Скрыто от клиента

	// IsActive=false — мягкое изъятие из банка, задание больше не предъявляется
	IsActive bool `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Item) TableName() string {
	return "items"
}

// ParamsValid проверяет, что IRT-параметры не вырождены.
// Вырожденные задания (a<=0 или c>=1) исключаются из выбора и считаются
// ошибкой конфигурации банка, а не сессии.
func (i *Item) ParamsValid() bool {
	return i.Discrimination > 0 && i.Guessing >= 0 && i.Guessing < 1
}

// IsCorrect проверяет ответ экзаменуемого по ключу задания
func (i *Item) IsCorrect(rawAnswer string) bool {
	return rawAnswer == i.CorrectAnswer
}
