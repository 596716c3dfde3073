package service

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/domain/repository"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// ItemService предоставляет методы для работы с банком заданий
type ItemService struct {
	itemRepo repository.ItemRepository
	poolRepo repository.PoolRepository
}

// NewItemService создает новый сервис банка заданий
func NewItemService(itemRepo repository.ItemRepository, poolRepo repository.PoolRepository) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		poolRepo: poolRepo,
	}
}

// CreatePool создает новый пул заданий
func (s *ItemService) CreatePool(pool *entity.Pool) error {
	if pool.Name == "" {
		return fmt.Errorf("pool name is required: %w", apperrors.ErrValidation)
	}
	return s.poolRepo.Create(pool)
}

// GetPool возвращает пул по ID
func (s *ItemService) GetPool(id uint) (*entity.Pool, error) {
	return s.poolRepo.GetByID(id)
}

// ListPools возвращает пулы арендатора с пагинацией
func (s *ItemService) ListPools(tenantID uint, limit, offset int) ([]entity.Pool, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.poolRepo.List(tenantID, limit, offset)
}

// CreateItem добавляет откалиброванное задание в пул
func (s *ItemService) CreateItem(item *entity.Item) error {
	if err := s.validateItem(item); err != nil {
		return err
	}
	if _, err := s.poolRepo.GetByID(item.PoolID); err != nil {
		return fmt.Errorf("pool %d: %w", item.PoolID, err)
	}
	item.IsActive = true
	return s.itemRepo.Create(item)
}

// GetItem возвращает задание по ID
func (s *ItemService) GetItem(id uint) (*entity.Item, error) {
	return s.itemRepo.GetByID(id)
}

// UpdateItem обновляет параметры задания (рекалибровка).
// Исторические ответы не пересчитываются: в них хранится снапшот
// параметров на момент предъявления.
func (s *ItemService) UpdateItem(item *entity.Item) error {
	if err := s.validateItem(item); err != nil {
		return err
	}
	if _, err := s.itemRepo.GetByID(item.ID); err != nil {
		return err
	}
	return s.itemRepo.Update(item)
}

// RetireItem мягко изымает задание из банка
func (s *ItemService) RetireItem(id uint) error {
	return s.itemRepo.Retire(id)
}

// ImportXLSX импортирует банк заданий из Excel-файла.
// Ожидаемые колонки (первая строка — заголовки):
// topic, cognitive_level, stem, correct_answer, discrimination, difficulty, guessing.
// Строки с вырожденными IRT-параметрами отклоняют весь импорт: частично
// загруженный банк хуже незагруженного.
func (s *ItemService) ImportXLSX(poolID uint, r io.Reader) (int, error) {
	if _, err := s.poolRepo.GetByID(poolID); err != nil {
		return 0, fmt.Errorf("pool %d: %w", poolID, err)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open xlsx: %w: %v", apperrors.ErrValidation, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return 0, fmt.Errorf("sheet %q has no data rows: %w", sheet, apperrors.ErrValidation)
	}

	items := make([]entity.Item, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) < 7 {
			return 0, fmt.Errorf("row %d: expected 7 columns, got %d: %w", rowNum, len(row), apperrors.ErrValidation)
		}

		a, errA := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		c, errC := strconv.ParseFloat(strings.TrimSpace(row[6]), 64)
		if errA != nil || errB != nil || errC != nil {
			return 0, fmt.Errorf("row %d: invalid IRT parameters: %w", rowNum, apperrors.ErrValidation)
		}

		item := entity.Item{
			PoolID:         poolID,
			Topic:          strings.TrimSpace(row[0]),
			CognitiveLevel: strings.TrimSpace(row[1]),
			Stem:           strings.TrimSpace(row[2]),
			CorrectAnswer:  strings.TrimSpace(row[3]),
			Discrimination: a,
			Difficulty:     b,
			Guessing:       c,
			IsActive:       true,
		}
		if err := s.validateItem(&item); err != nil {
			return 0, fmt.Errorf("row %d: %w", rowNum, err)
		}
		items = append(items, item)
	}

	if err := s.itemRepo.CreateBatch(items); err != nil {
		return 0, fmt.Errorf("failed to import items: %w", err)
	}

	log.Printf("[ItemService] Imported %d items into pool %d", len(items), poolID)
	return len(items), nil
}

// validateItem проверяет инварианты задания до записи в банк
func (s *ItemService) validateItem(item *entity.Item) error {
	if item.Stem == "" || item.CorrectAnswer == "" {
		return fmt.Errorf("stem and correct_answer are required: %w", apperrors.ErrValidation)
	}
	if item.Topic == "" {
		return fmt.Errorf("topic is required: %w", apperrors.ErrValidation)
	}
	if !item.ParamsValid() {
		return fmt.Errorf("degenerate IRT parameters (a=%.3f, c=%.3f): %w",
			item.Discrimination, item.Guessing, apperrors.ErrValidation)
	}
	return nil
}
