package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных
	// (в том числе для вырожденных IRT-параметров при создании заданий).
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например,
	// повторная генерация отчёта для сессии).
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки адаптивного движка
var (
	// ErrInvalidSequence возвращается, когда ответ отправлен не на тот вопрос,
	// который сейчас ожидается в сессии. Состояние сессии не меняется.
	ErrInvalidSequence = errors.New("response does not match pending item")

	// ErrSessionTerminal возвращается при попытке отправить ответ
	// в завершённую или прерванную сессию.
	ErrSessionTerminal = errors.New("session is already terminal")

	// ErrSessionNotComplete возвращается при попытке сгенерировать отчёт
	// для незавершённой сессии (in_progress или abandoned).
	ErrSessionNotComplete = errors.New("session is not completed")

	// ErrPoolExhausted — сигнал селектора: в пуле не осталось подходящих
	// заданий даже после ослабления ограничений. Это НЕ ошибка конфигурации,
	// машина состояний останавливает сессию с причиной "pool_exhausted".
	ErrPoolExhausted = errors.New("item pool exhausted")

	// ErrEmptyPool — ошибка конфигурации: пул не содержит ни одного
	// активного задания на старте сессии. Фатальна только для этой сессии.
	ErrEmptyPool = errors.New("item pool is empty")
)
