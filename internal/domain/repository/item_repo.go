package repository

import (
	"github.com/yourusername/cat-engine/internal/domain/entity"
)

// ItemRepository определяет методы для работы с банком заданий
type ItemRepository interface {
	Create(item *entity.Item) error
	CreateBatch(items []entity.Item) error
	GetByID(id uint) (*entity.Item, error)

	// GetEligible возвращает активные задания пула с валидными IRT-параметрами,
	// исключая перечисленные ID (уже предъявленные в сессии)
	GetEligible(poolID uint, excludeIDs []uint) ([]entity.Item, error)

	CountActive(poolID uint) (int64, error)
	Update(item *entity.Item) error

	// Retire мягко изымает задание из банка (is_active = false)
	Retire(id uint) error
}
