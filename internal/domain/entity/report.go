package entity

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TopicScore — разбивка результатов по одной теме
type TopicScore struct {
	Asked         int     `json:"asked"`
	Correct       int     `json:"correct"`
	WeightedScore float64 `json:"weighted_score"` // Доля верных, взвешенная дискриминативностью
}

// TopicScoreMap — разбивка по всем темам сессии (JSONB)
type TopicScoreMap map[string]TopicScore

// Scan реализует интерфейс sql.Scanner для TopicScoreMap
func (o *TopicScoreMap) Scan(value interface{}) error {
	return scanJSONB(value, o, func() { *o = TopicScoreMap{} })
}

// Value реализует интерфейс driver.Valuer для TopicScoreMap
func (o TopicScoreMap) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(o)
}

// Report представляет итоговый описательный отчёт завершённой сессии.
// Создаётся ровно один раз (1:1 с сессией), после генерации неизменяем.
// Для прерванных (abandoned) сессий отчёт не создаётся.
type Report struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"size:36;not null;uniqueIndex" json:"session_id"`

	FinalTheta float64 `gorm:"not null" json:"final_theta"`
	FinalSE    float64 `gorm:"not null" json:"final_se"`
	// Percentile вычисляется по внешнему референсному распределению способности
	Percentile float64 `gorm:"not null" json:"percentile"`

	TopicBreakdown TopicScoreMap `gorm:"type:jsonb;not null" json:"topic_breakdown"`
	Strengths      StringArray   `gorm:"type:jsonb;not null" json:"strengths"`
	Weaknesses     StringArray   `gorm:"type:jsonb;not null" json:"weaknesses"`

	// Consistency — средний квадрат расхождения фактической правильности
	// и предсказанной 3PL-вероятности на момент ответа. Высокое значение —
	// информационный флаг для ручной проверки (не блокирующий).
	Consistency        float64 `gorm:"not null" json:"consistency"`
	ConsistencyFlagged bool    `gorm:"not null;default:false" json:"consistency_flagged"`

	RecommendedTopics     StringArray `gorm:"type:jsonb;not null" json:"recommended_topics"`
	RecommendedDifficulty float64     `gorm:"not null" json:"recommended_difficulty"`

	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Report) TableName() string {
	return "reports"
}
