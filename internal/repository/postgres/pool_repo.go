package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// PoolRepo реализует repository.PoolRepository
type PoolRepo struct {
	db *gorm.DB
}

// NewPoolRepo создает новый репозиторий пулов
func NewPoolRepo(db *gorm.DB) *PoolRepo {
	return &PoolRepo{db: db}
}

// Create создает новый пул заданий
func (r *PoolRepo) Create(pool *entity.Pool) error {
	return r.db.Create(pool).Error
}

// GetByID возвращает пул по ID
func (r *PoolRepo) GetByID(id uint) (*entity.Pool, error) {
	var pool entity.Pool
	err := r.db.First(&pool, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &pool, nil
}

// List возвращает пулы арендатора с пагинацией и общим количеством
func (r *PoolRepo) List(tenantID uint, limit, offset int) ([]entity.Pool, int64, error) {
	var pools []entity.Pool
	var total int64

	query := r.db.Model(&entity.Pool{}).Where("tenant_id = ?", tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id").Limit(limit).Offset(offset).Find(&pools).Error
	if err != nil {
		return nil, 0, err
	}
	return pools, total, nil
}
