package entity

import (
	"time"
)

// Pool представляет именованный банк заданий в рамках одного предмета/класса.
// Все задания сессии принадлежат ровно одному пулу.
type Pool struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"not null;index" json:"tenant_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Subject     string    `gorm:"size:100;not null" json:"subject"`
	GradeLevel  string    `gorm:"size:50;not null;default:''" json:"grade_level"`
	Description string    `gorm:"size:500;not null;default:''" json:"description"`
	Items       []Item    `gorm:"foreignKey:PoolID" json:"items,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Pool) TableName() string {
	return "pools"
}
