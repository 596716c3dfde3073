package repository

// ReferenceDistribution — внешнее референсное распределение способности,
// по которому считается перцентиль итогового θ
type ReferenceDistribution interface {
	// CDF возвращает значение функции распределения в точке theta, [0, 1]
	CDF(theta float64) float64
}
