package catengine

import (
	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/domain/repository"
)

// Константы по умолчанию
const (
	DefaultMaxQuestions = 20
	DefaultMinQuestions = 5
	DefaultSETarget     = 0.35
)

// Config содержит настройки всех компонентов адаптивного движка
type Config struct {
	// Границы шкалы способности: оценки θ зажимаются в [ThetaMin, ThetaMax]
	ThetaMin float64
	ThetaMax float64

	// Настройки EAP-оценивания
	QuadraturePoints int // Число узлов квадратурной сетки

	// Настройки MLE-оценивания
	MaxNewtonIterations int     // Бюджет итераций Ньютона-Рафсона до фолбэка на EAP
	NewtonTolerance     float64 // Порог сходимости |Δθ|
	MinResponsesForMLE  int     // До этого числа ответов всегда используется EAP

	// Настройки контроля экспозиции
	MaxExposureRate float64 // Порог доли сессий, выше которого задание отсекается

	// Настройки скоринга селектора
	TopicPenaltyWeight    float64 // Вес штрафа за перепредставленность темы
	ExposurePenaltyWeight float64 // Вес штрафа за историческую экспозицию
	TieEpsilon            float64 // Окно равнозначности для случайного тай-брейка

	// Настройки синтеза отчёта
	StrengthSDThreshold  float64 // Порог (в SD) отнесения темы к сильным/слабым
	ConsistencyThreshold float64 // Порог среднеквадратичного остатка для флага

	// DefaultSession — конфигурация сессии по умолчанию; поля,
	// не заданные вызывающим, добираются отсюда
	DefaultSession entity.SessionConfig
}

// DefaultConfig возвращает конфигурацию движка по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ThetaMin:            -4.0,
		ThetaMax:            4.0,
		QuadraturePoints:    41,
		MaxNewtonIterations: 20,
		NewtonTolerance:     0.001,
		MinResponsesForMLE:  3,

		MaxExposureRate: 0.25,

		TopicPenaltyWeight:    0.5,
		ExposurePenaltyWeight: 0.5,
		TieEpsilon:            0.01,

		StrengthSDThreshold:  1.0,
		ConsistencyThreshold: 0.35,

		DefaultSession: entity.SessionConfig{
			MaxQuestions:      DefaultMaxQuestions,
			MinQuestions:      DefaultMinQuestions,
			SETarget:          DefaultSETarget,
			InitialAbility:    0,
			EstimationMethod:  entity.EstimationEAP,
			SelectionMethod:   entity.SelectionMaxInformation,
			ExposureControl:   true,
			PreventRepetition: true,
			TopicBalancing:    true,
		},
	}
}

// Dependencies содержит внешние зависимости движка. Движок не делает
// блокирующего I/O сам по себе: все внешние чтения инжектируются
// синхронными интерфейсами, поэтому ядро тривиально тестируется.
type Dependencies struct {
	ItemRepo repository.ItemRepository
	Exposure repository.ExposureStore
	RefDist  repository.ReferenceDistribution
}

// SessionState — состояние сессии в памяти, которым владеет машина
// состояний. Движок возвращает обновлённое состояние, персистентность —
// обязанность вызывающего. Конкурентный контракт: не более одного
// SubmitResponse одновременно на сессию; сериализация по session id —
// обязанность вызывающего слоя (движок внутренних блокировок не держит).
type SessionState struct {
	Session   *entity.Session
	Responses []entity.Response

	// PendingItem — задание, ожидающее ответа (nil в терминальном статусе)
	PendingItem *entity.Item
}
