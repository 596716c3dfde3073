package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// ItemRepo реализует repository.ItemRepository
type ItemRepo struct {
	db *gorm.DB
}

// NewItemRepo создает новый репозиторий банка заданий
func NewItemRepo(db *gorm.DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// Create создает новое задание
func (r *ItemRepo) Create(item *entity.Item) error {
	return r.db.Create(item).Error
}

// CreateBatch создает пакет заданий одной транзакцией (импорт банка)
func (r *ItemRepo) CreateBatch(items []entity.Item) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
}

// GetByID возвращает задание по ID
func (r *ItemRepo) GetByID(id uint) (*entity.Item, error) {
	var item entity.Item
	err := r.db.First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetEligible возвращает активные задания пула, исключая уже предъявленные.
// Вырожденные IRT-параметры дополнительно отсекаются селектором с
// логированием, здесь фильтр только по активности.
func (r *ItemRepo) GetEligible(poolID uint, excludeIDs []uint) ([]entity.Item, error) {
	var items []entity.Item
	query := r.db.Where("pool_id = ? AND is_active = ?", poolID, true)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	err := query.Order("id").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CountActive возвращает количество активных заданий пула
func (r *ItemRepo) CountActive(poolID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Item{}).
		Where("pool_id = ? AND is_active = ?", poolID, true).
		Count(&count).Error
	return count, err
}

// Update обновляет параметры задания (рекалибровка банка)
func (r *ItemRepo) Update(item *entity.Item) error {
	return r.db.Save(item).Error
}

// Retire мягко изымает задание из банка. Физическое удаление не
// используется: на задание ссылаются исторические ответы.
func (r *ItemRepo) Retire(id uint) error {
	result := r.db.Model(&entity.Item{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
