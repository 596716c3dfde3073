package repository

import (
	"time"
)

// ExposureStore — единственное состояние, разделяемое параллельными
// сессиями. Реализация обязана поддерживать конкурентные запись и чтение
// без потери обновлений (атомарные инкременты, а не read-modify-write).
// Данные накапливаются монотонно; очистка — внешняя политика ретенции.
type ExposureStore interface {
	// RegisterSession учитывает новую сессию пула (знаменатель exposure rate)
	RegisterSession(poolID uint, sessionID string) error

	// Record фиксирует предъявление задания (append-only)
	Record(itemID, examineeID uint, sessionID string, ts time.Time) error

	// Rate возвращает долю сессий пула, в которых предъявлялось задание
	Rate(itemID, poolID uint) (float64, error)

	// RecentForExaminee отвечает, предъявлялось ли задание экзаменуемому
	// в пределах окна последних N сессий (N задаёт реализация)
	RecentForExaminee(examineeID, itemID uint) (bool, error)
}
