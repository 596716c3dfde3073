package catengine

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/cat-engine/internal/domain/entity"
)

// synthesizeReport строит описательный отчёт по финальной оценке
// способности и полной истории ответов завершённой сессии
func (e *Engine) synthesizeReport(session *entity.Session, responses []entity.Response) *entity.Report {
	finalTheta := session.CurrentTheta()
	finalSE := 0.0
	if session.StandardError != nil {
		finalSE = *session.StandardError
	}

	breakdown := e.topicBreakdown(responses)
	strengths, weaknesses := e.classifyTopics(breakdown)
	consistency := e.consistency(responses)

	report := &entity.Report{
		SessionID:          session.ID,
		FinalTheta:         finalTheta,
		FinalSE:            finalSE,
		Percentile:         e.deps.RefDist.CDF(finalTheta) * 100,
		TopicBreakdown:     breakdown,
		Strengths:          strengths,
		Weaknesses:         weaknesses,
		Consistency:        consistency,
		ConsistencyFlagged: consistency > e.config.ConsistencyThreshold,
		RecommendedTopics:  e.recommendTopics(breakdown, weaknesses),
		// Следующий материал эффективнее всего на уровне текущей способности
		RecommendedDifficulty: finalTheta,
		GeneratedAt:           time.Now(),
	}
	return report
}

// topicBreakdown агрегирует ответы по темам. Взвешенный скор темы —
// доля верных ответов, взвешенная дискриминативностью заданий:
// верный ответ на высокодискриминативное задание весит больше.
func (e *Engine) topicBreakdown(responses []entity.Response) entity.TopicScoreMap {
	type acc struct {
		asked, correct   int
		weightSum, score float64
	}
	byTopic := map[string]*acc{}

	for _, r := range responses {
		topic := e.topicOf(r)
		a, ok := byTopic[topic]
		if !ok {
			a = &acc{}
			byTopic[topic] = a
		}
		a.asked++
		a.weightSum += r.ItemA
		if r.IsCorrect {
			a.correct++
			a.score += r.ItemA
		}
	}

	breakdown := entity.TopicScoreMap{}
	for topic, a := range byTopic {
		weighted := 0.0
		if a.weightSum > 0 {
			weighted = a.score / a.weightSum
		}
		breakdown[topic] = entity.TopicScore{
			Asked:         a.asked,
			Correct:       a.correct,
			WeightedScore: weighted,
		}
	}
	return breakdown
}

// topicOf восстанавливает тему задания по ответу. Параметры задания
// снапшотятся в Response, тема — нет, поэтому задание дочитывается
// из банка; при ошибке ответ относится к общей теме.
func (e *Engine) topicOf(r entity.Response) string {
	item, err := e.deps.ItemRepo.GetByID(r.ItemID)
	if err != nil || item.Topic == "" {
		return "general"
	}
	return item.Topic
}

// classifyTopics делит темы на сильные и слабые стороны: тема сильная,
// если её взвешенный скор на StrengthSDThreshold стандартных отклонений
// выше среднего по темам сессии, слабая — симметрично ниже
func (e *Engine) classifyTopics(breakdown entity.TopicScoreMap) (entity.StringArray, entity.StringArray) {
	strengths := entity.StringArray{}
	weaknesses := entity.StringArray{}
	if len(breakdown) < 2 {
		return strengths, weaknesses
	}

	var mean float64
	for _, s := range breakdown {
		mean += s.WeightedScore
	}
	mean /= float64(len(breakdown))

	var variance float64
	for _, s := range breakdown {
		d := s.WeightedScore - mean
		variance += d * d
	}
	variance /= float64(len(breakdown))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return strengths, weaknesses
	}

	for topic, s := range breakdown {
		switch {
		case s.WeightedScore >= mean+e.config.StrengthSDThreshold*sd:
			strengths = append(strengths, topic)
		case s.WeightedScore <= mean-e.config.StrengthSDThreshold*sd:
			weaknesses = append(weaknesses, topic)
		}
	}
	sort.Strings([]string(strengths))
	sort.Strings([]string(weaknesses))
	return strengths, weaknesses
}

// consistency — средний квадрат расхождения фактической правильности
// и 3PL-вероятности, предсказанной по θ на момент ответа. Считается
// по снапшоту параметров в Response: последующая рекалибровка банка
// не меняет исторические отчёты.
func (e *Engine) consistency(responses []entity.Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	var sum float64
	for _, r := range responses {
		p := Probability(r.ItemA, r.ItemB, r.ItemC, r.ThetaBefore)
		u := 0.0
		if r.IsCorrect {
			u = 1.0
		}
		d := u - p
		sum += d * d
	}
	return sum / float64(len(responses))
}

// recommendTopics возвращает темы для дальнейшей работы: в первую
// очередь слабые стороны, иначе — темы с наименьшим взвешенным скором
func (e *Engine) recommendTopics(breakdown entity.TopicScoreMap, weaknesses entity.StringArray) entity.StringArray {
	if len(weaknesses) > 0 {
		return weaknesses
	}

	type topicScore struct {
		topic string
		score float64
	}
	ranked := make([]topicScore, 0, len(breakdown))
	for topic, s := range breakdown {
		ranked = append(ranked, topicScore{topic, s.WeightedScore})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].topic < ranked[j].topic
	})

	recommended := entity.StringArray{}
	for i := 0; i < len(ranked) && i < 2; i++ {
		// Рекомендуются только темы, где есть что подтянуть
		if ranked[i].score < 1.0 {
			recommended = append(recommended, ranked[i].topic)
		}
	}
	return recommended
}

// StandardNormal — референсное распределение способности N(0,1).
// Используется по умолчанию, пока у арендатора нет собственных
// калибровочных данных по популяции.
type StandardNormal struct{}

// CDF возвращает Φ(θ) — долю популяции со способностью ниже θ
func (StandardNormal) CDF(theta float64) float64 {
	return 0.5 * (1 + math.Erf(theta/math.Sqrt2))
}
