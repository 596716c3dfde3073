package catengine

import (
	"log"
	"math"

	"github.com/yourusername/cat-engine/internal/domain/entity"
)

// Estimator — стратегия оценивания способности. Каждый вызов — чистая
// функция полной истории ответов (без инкрементального состояния),
// что позволяет переоценивание и аудит. Стратегии образуют закрытый
// набор и выбираются при конфигурации сессии, а не строковыми
// сравнениями по коду.
//
// Пустая история → (prior, +Inf): бесконечный SE — сигнал селектору
// выбирать первое задание только по контент-балансировке.
type Estimator interface {
	Estimate(responses []entity.Response, prior float64) (theta, se float64)
}

// NewEstimator возвращает стратегию по имени метода из конфигурации сессии.
// Неизвестные имена отсекаются валидацией SessionConfig до этого вызова.
func NewEstimator(method string, cfg *Config) Estimator {
	switch method {
	case entity.EstimationMLE:
		return &MLEEstimator{cfg: cfg, fallback: &EAPEstimator{cfg: cfg}}
	default:
		return &EAPEstimator{cfg: cfg}
	}
}

// ============================================================================
// EAP (Expected A Posteriori)
// ============================================================================

// EAPEstimator — байесовская оценка: численное интегрирование постериора
// по квадратурной сетке с нормальным N(0,1) приором. Всегда определена,
// используется для ранних ответов и как фолбэк при расходимости MLE.
type EAPEstimator struct {
	cfg *Config
}

// Estimate возвращает постериорное среднее и постериорное SD как SE
func (e *EAPEstimator) Estimate(responses []entity.Response, prior float64) (float64, float64) {
	if len(responses) == 0 {
		return prior, math.Inf(1)
	}

	n := e.cfg.QuadraturePoints
	if n < 3 {
		n = 41
	}
	step := (e.cfg.ThetaMax - e.cfg.ThetaMin) / float64(n-1)

	var sumW, sumWT float64
	weights := make([]float64, n)
	nodes := make([]float64, n)

	for i := 0; i < n; i++ {
		x := e.cfg.ThetaMin + float64(i)*step
		// Нормальный приор N(0,1); нормировочная константа сокращается
		w := math.Exp(-x * x / 2)
		// Правдоподобие в лог-пространстве для устойчивости на длинных сессиях
		logL := 0.0
		for _, r := range responses {
			p := Probability(r.ItemA, r.ItemB, r.ItemC, x)
			if r.IsCorrect {
				logL += math.Log(math.Max(p, 1e-10))
			} else {
				logL += math.Log(math.Max(1-p, 1e-10))
			}
		}
		w *= math.Exp(logL)
		nodes[i] = x
		weights[i] = w
		sumW += w
		sumWT += w * x
	}

	if sumW <= 0 {
		// Постериор численно схлопнулся — остаёмся на приоре
		return prior, math.Inf(1)
	}

	theta := sumWT / sumW
	var variance float64
	for i := 0; i < n; i++ {
		d := nodes[i] - theta
		variance += weights[i] * d * d
	}
	variance /= sumW

	return theta, math.Sqrt(variance)
}

// ============================================================================
// MLE (Maximum Likelihood)
// ============================================================================

// MLEEstimator — итерации Ньютона-Рафсона по градиенту лог-правдоподобия
// Σ aᵢ(uᵢ - pᵢ) с информацией Фишера в роли гессиана, SE = 1/√(ΣIᵢ).
// На вырожденных паттернах (все верно / все неверно) MLE уходит в ±∞,
// поэтому такие истории и несошедшиеся итерации отдаются EAP-фолбэку.
type MLEEstimator struct {
	cfg      *Config
	fallback *EAPEstimator
}

// Estimate возвращает ML-оценку либо результат EAP-фолбэка
func (e *MLEEstimator) Estimate(responses []entity.Response, prior float64) (float64, float64) {
	if len(responses) == 0 {
		return prior, math.Inf(1)
	}

	if allSame(responses) {
		// Ожидаемое, обрабатываемое состояние, не ошибка: логируем
		// на низком уровне для мониторинга калибровки
		log.Printf("[Estimator] MLE: uniform response pattern (n=%d), falling back to EAP", len(responses))
		return e.fallback.Estimate(responses, prior)
	}

	theta := clamp(prior, e.cfg.ThetaMin, e.cfg.ThetaMax)
	converged := false

	for iter := 0; iter < e.cfg.MaxNewtonIterations; iter++ {
		var grad, info float64
		for _, r := range responses {
			p := Probability(r.ItemA, r.ItemB, r.ItemC, theta)
			u := 0.0
			if r.IsCorrect {
				u = 1.0
			}
			grad += r.ItemA * (u - p)
			info += Information(r.ItemA, r.ItemB, r.ItemC, theta)
		}

		if info <= 0 {
			break // Нет информации в этой точке — ньютоновский шаг не определён
		}

		delta := grad / info
		theta = clamp(theta+delta, e.cfg.ThetaMin, e.cfg.ThetaMax)

		if math.Abs(delta) < e.cfg.NewtonTolerance {
			converged = true
			break
		}
	}

	if !converged {
		log.Printf("[Estimator] MLE did not converge within %d iterations, falling back to EAP", e.cfg.MaxNewtonIterations)
		return e.fallback.Estimate(responses, prior)
	}

	var totalInfo float64
	for _, r := range responses {
		totalInfo += Information(r.ItemA, r.ItemB, r.ItemC, theta)
	}
	if totalInfo <= 0 {
		return e.fallback.Estimate(responses, prior)
	}

	return theta, 1 / math.Sqrt(totalInfo)
}

// allSame проверяет вырожденный паттерн: все ответы верные или все неверные
func allSame(responses []entity.Response) bool {
	first := responses[0].IsCorrect
	for _, r := range responses[1:] {
		if r.IsCorrect != first {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
