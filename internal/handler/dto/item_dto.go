package dto

import (
	"time"

	"github.com/yourusername/cat-engine/internal/domain/entity"
)

// ItemResponse представляет задание банка в административном формате.
// Ключ наружу не отдается даже администратору: правильность проверяет
// только движок.
type ItemResponse struct {
	ID             uint      `json:"id"`
	PoolID         uint      `json:"pool_id"`
	Topic          string    `json:"topic"`
	CognitiveLevel string    `json:"cognitive_level"`
	Stem           string    `json:"stem"`
	Discrimination float64   `json:"discrimination"`
	Difficulty     float64   `json:"difficulty"`
	Guessing       float64   `json:"guessing"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewItemResponse создает DTO задания
func NewItemResponse(item *entity.Item) *ItemResponse {
	return &ItemResponse{
		ID:             item.ID,
		PoolID:         item.PoolID,
		Topic:          item.Topic,
		CognitiveLevel: item.CognitiveLevel,
		Stem:           item.Stem,
		Discrimination: item.Discrimination,
		Difficulty:     item.Difficulty,
		Guessing:       item.Guessing,
		IsActive:       item.IsActive,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

// PoolResponse представляет пул заданий в формате для клиента
type PoolResponse struct {
	ID          uint      `json:"id"`
	TenantID    uint      `json:"tenant_id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject,omitempty"`
	GradeLevel  string    `json:"grade_level,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPoolResponse создает DTO пула
func NewPoolResponse(pool *entity.Pool) *PoolResponse {
	return &PoolResponse{
		ID:          pool.ID,
		TenantID:    pool.TenantID,
		Name:        pool.Name,
		Subject:     pool.Subject,
		GradeLevel:  pool.GradeLevel,
		Description: pool.Description,
		CreatedAt:   pool.CreatedAt,
	}
}

// PaginatedPoolResponse представляет пагинированный список пулов
type PaginatedPoolResponse struct {
	Pools   []*PoolResponse `json:"pools"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}
