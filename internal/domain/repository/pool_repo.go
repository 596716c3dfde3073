package repository

import (
	"github.com/yourusername/cat-engine/internal/domain/entity"
)

// PoolRepository определяет методы для работы с пулами заданий
type PoolRepository interface {
	Create(pool *entity.Pool) error
	GetByID(id uint) (*entity.Pool, error)
	List(tenantID uint, limit, offset int) ([]entity.Pool, int64, error)
}
