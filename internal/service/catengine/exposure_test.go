package catengine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// failingExposureStore всегда возвращает ошибку хранилища
type failingExposureStore struct{}

func (failingExposureStore) RegisterSession(poolID uint, sessionID string) error {
	return errors.New("store down")
}
func (failingExposureStore) Record(itemID, examineeID uint, sessionID string, ts time.Time) error {
	return errors.New("store down")
}
func (failingExposureStore) Rate(itemID, poolID uint) (float64, error) {
	return 0, errors.New("store down")
}
func (failingExposureStore) RecentForExaminee(examineeID, itemID uint) (bool, error) {
	return false, errors.New("store down")
}

func TestExposureTracker_IsOverExposed(t *testing.T) {
	store := newFakeExposureLog()
	store.rates[1] = 0.5
	store.rates[2] = 0.1
	store.recent[42] = map[uint]bool{3: true}

	tracker := NewExposureTracker(DefaultConfig(), store) // MaxExposureRate = 0.25

	assert.True(t, tracker.IsOverExposed(1, 42, 1, false), "Доля выше порога — задание отсекается")
	assert.False(t, tracker.IsOverExposed(2, 42, 1, false), "Доля ниже порога — задание допустимо")

	assert.True(t, tracker.IsOverExposed(3, 42, 1, true), "Недавний показ при prevent_repetition отсекает")
	assert.False(t, tracker.IsOverExposed(3, 42, 1, false), "Без prevent_repetition окно не проверяется")
}

func TestExposureTracker_StoreFailuresAreNonFatal(t *testing.T) {
	tracker := NewExposureTracker(DefaultConfig(), failingExposureStore{})

	// Ошибки хранилища деградируют в "не штрафовать", а не валят сессию
	assert.Equal(t, 0.0, tracker.Rate(1, 1))
	assert.False(t, tracker.IsOverExposed(1, 42, 1, true))

	// Record и RegisterSession не возвращают ошибок вызывающему
	tracker.Record(1, 42, "s", time.Now())
	tracker.RegisterSession(1, "s")
}
