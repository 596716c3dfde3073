package entity

import (
	"time"
)

// Response представляет один ответ в сессии (append-only, по одному на
// предъявленное задание). IRT-параметры задания снапшотятся на момент
// предъявления: последующая рекалибровка банка не инвалидирует
// исторические ответы.
//
// Инварианты: Sequence непрерывен начиная с 1;
// ThetaAfter ответа n равен ThetaBefore ответа n+1.
type Response struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"size:36;not null;index;uniqueIndex:idx_session_seq" json:"session_id"`
	ItemID    uint   `gorm:"not null;index" json:"item_id"`
	Sequence  int    `gorm:"not null;uniqueIndex:idx_session_seq" json:"sequence"`

	RawAnswer      string `gorm:"size:255;not null" json:"raw_answer"`
	IsCorrect      bool   `gorm:"not null" json:"is_correct"`
	ResponseTimeMs int64  `gorm:"not null;default:0" json:"response_time_ms"`

	ThetaBefore float64 `gorm:"not null" json:"theta_before"`
	ThetaAfter  float64 `gorm:"not null" json:"theta_after"`
	SEAfter     float64 `gorm:"not null" json:"se_after"`

	// Снапшот параметров задания на момент предъявления
	ItemA float64 `gorm:"not null" json:"item_a"`
	ItemB float64 `gorm:"not null" json:"item_b"`
	ItemC float64 `gorm:"not null" json:"item_c"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Response) TableName() string {
	return "responses"
}
