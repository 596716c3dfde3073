package catengine

import (
	"log"
	"time"

	"github.com/yourusername/cat-engine/internal/domain/repository"
)

// ExposureTracker оборачивает ExposureStore политикой контроля экспозиции.
// Журнал экспозиции — единственное состояние, разделяемое параллельными
// сессиями; хранилище обязано обеспечивать атомарные инкременты.
type ExposureTracker struct {
	config *Config
	store  repository.ExposureStore
}

// NewExposureTracker создаёт новый трекер экспозиции
func NewExposureTracker(config *Config, store repository.ExposureStore) *ExposureTracker {
	return &ExposureTracker{config: config, store: store}
}

// RegisterSession учитывает старт сессии пула (знаменатель exposure rate)
func (t *ExposureTracker) RegisterSession(poolID uint, sessionID string) {
	if err := t.store.RegisterSession(poolID, sessionID); err != nil {
		log.Printf("[ExposureTracker] Error registering session %s for pool %d: %v", sessionID, poolID, err)
	}
}

// Record фиксирует предъявление задания. Ошибка хранилища не валит сессию:
// журнал экспозиции — вспомогательная статистика, ответ уже принят.
func (t *ExposureTracker) Record(itemID, examineeID uint, sessionID string, ts time.Time) {
	if err := t.store.Record(itemID, examineeID, sessionID, ts); err != nil {
		log.Printf("[ExposureTracker] WARNING: failed to record exposure for item %d (session %s): %v", itemID, sessionID, err)
	}
}

// Rate возвращает историческую долю предъявлений задания.
// При ошибке хранилища возвращает 0 (задание не штрафуется).
func (t *ExposureTracker) Rate(itemID, poolID uint) float64 {
	rate, err := t.store.Rate(itemID, poolID)
	if err != nil {
		log.Printf("[ExposureTracker] WARNING: failed to read exposure rate for item %d: %v", itemID, err)
		return 0
	}
	return rate
}

// IsOverExposed проверяет жёсткие ограничения экспозиции: превышение
// максимальной доли предъявлений либо недавний показ этому экзаменуемому
// (при включённом prevent_repetition)
func (t *ExposureTracker) IsOverExposed(itemID, examineeID, poolID uint, preventRepetition bool) bool {
	if t.Rate(itemID, poolID) > t.config.MaxExposureRate {
		return true
	}
	if preventRepetition {
		recent, err := t.store.RecentForExaminee(examineeID, itemID)
		if err != nil {
			log.Printf("[ExposureTracker] WARNING: failed to check recent exposure for examinee %d, item %d: %v", examineeID, itemID, err)
			return false
		}
		return recent
	}
	return false
}
