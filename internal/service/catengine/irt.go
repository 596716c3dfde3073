package catengine

import (
	"math"
)

// Чистые функции трёхпараметрической логистической модели (3PL).
// Без побочных эффектов и разделяемого состояния: безопасны для
// конкурентного вызова из параллельных сессий.

// maxExponent — зажим показателя экспоненты: при |a·(θ-b)| за пределами
// этой величины сигмоида уже неотличима от 0/1, а exp переполняется
const maxExponent = 35.0

// Probability возвращает 3PL-вероятность верного ответа:
// p = c + (1-c) / (1 + exp(-a·(θ-b)))
func Probability(a, b, c, theta float64) float64 {
	x := a * (theta - b)
	if x > maxExponent {
		x = maxExponent
	}
	if x < -maxExponent {
		x = -maxExponent
	}
	return c + (1-c)/(1+math.Exp(-x))
}

// Information возвращает информацию Фишера задания в точке θ:
// I = a²·(p-c)²·(1-p) / ((1-c)²·p)
// Для вырожденных случаев (p∈{0,1}, c>=1) возвращает 0, а не панику:
// такие задания — ошибка конфигурации банка и отсекаются селектором.
func Information(a, b, c, theta float64) float64 {
	if c >= 1 {
		return 0
	}
	p := Probability(a, b, c, theta)
	if p <= 0 || p >= 1 {
		return 0
	}
	num := a * a * (p - c) * (p - c) * (1 - p)
	den := (1 - c) * (1 - c) * p
	return num / den
}
