package catengine

import (
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"math/rand"
	"sync"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
)

// ItemSelector выбирает следующее задание пула по текущей оценке θ,
// истории сессии и сконфигурированной политике (критерий максимума
// информации со штрафами за перепредставленность темы и экспозицию).
type ItemSelector struct {
	config   *Config
	deps     *Dependencies
	exposure *ExposureTracker

	// degenerateLogged — задания с вырожденными параметрами логируются
	// один раз, дальше молча исключаются
	degenerateLogged sync.Map
}

// NewItemSelector создаёт новый селектор заданий
func NewItemSelector(config *Config, deps *Dependencies, exposure *ExposureTracker) *ItemSelector {
	return &ItemSelector{
		config:   config,
		deps:     deps,
		exposure: exposure,
	}
}

// scoredItem — кандидат с вычисленным скором
type scoredItem struct {
	item  entity.Item
	score float64
}

// SelectNext выбирает задание для позиции questions_answered+1.
// Порядок фильтрации: уже предъявленные → переэкспонированные →
// темы, упёршиеся в лимит. При истощении пула ограничения ослабляются
// в определённом порядке (сначала контроль экспозиции, затем
// тем-балансировка), после чего возвращается ErrPoolExhausted —
// окончательный сигнал остановки сессии.
func (s *ItemSelector) SelectNext(state *SessionState) (*entity.Item, error) {
	session := state.Session
	sequence := session.QuestionsAnswered + 1

	// Якорная позиция: задание фиксировано вызывающим, скоринг пропускается
	if anchorID, ok := session.Config.AnchorItems[sequence]; ok {
		return s.resolveAnchor(session, anchorID, sequence)
	}

	candidates, err := s.deps.ItemRepo.GetEligible(session.PoolID, session.AskedItems)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible items for pool %d: %w", session.PoolID, err)
	}
	candidates = s.dropDegenerate(candidates)

	// Ослабление ограничений в фиксированном порядке
	type pass struct {
		exposure bool
		topics   bool
	}
	passes := []pass{
		{session.Config.ExposureControl, session.Config.TopicBalancing},
		{false, session.Config.TopicBalancing},
		{false, false},
	}

	for i, p := range passes {
		filtered := s.filter(candidates, session, p.exposure, p.topics)
		if len(filtered) == 0 {
			continue
		}
		if i > 0 {
			log.Printf("[ItemSelector] Session %s: constraints relaxed (pass %d) to avoid pool exhaustion", session.ID, i+1)
		}
		return s.pick(filtered, session, sequence), nil
	}

	log.Printf("[ItemSelector] Session %s: pool %d exhausted at question %d", session.ID, session.PoolID, sequence)
	return nil, apperrors.ErrPoolExhausted
}

// resolveAnchor возвращает якорное задание, проверяя его пригодность
func (s *ItemSelector) resolveAnchor(session *entity.Session, anchorID uint, sequence int) (*entity.Item, error) {
	item, err := s.deps.ItemRepo.GetByID(anchorID)
	if err != nil {
		return nil, fmt.Errorf("anchor item %d for position %d: %w", anchorID, sequence, err)
	}
	if item.PoolID != session.PoolID || !item.IsActive {
		return nil, fmt.Errorf("anchor item %d is not an active item of pool %d: %w", anchorID, session.PoolID, apperrors.ErrValidation)
	}
	if session.AskedItems.Contains(anchorID) {
		return nil, fmt.Errorf("anchor item %d already administered in session %s: %w", anchorID, session.ID, apperrors.ErrValidation)
	}
	return item, nil
}

// dropDegenerate исключает задания с вырожденными IRT-параметрами,
// логируя каждое один раз (ошибка конфигурации банка)
func (s *ItemSelector) dropDegenerate(items []entity.Item) []entity.Item {
	out := items[:0]
	for _, it := range items {
		if !it.ParamsValid() {
			if _, logged := s.degenerateLogged.LoadOrStore(it.ID, true); !logged {
				log.Printf("[ItemSelector] WARNING: item %d has degenerate parameters (a=%.3f, c=%.3f), excluded from selection",
					it.ID, it.Discrimination, it.Guessing)
			}
			continue
		}
		out = append(out, it)
	}
	return out
}

// filter применяет жёсткие ограничения в предписанном порядке
func (s *ItemSelector) filter(candidates []entity.Item, session *entity.Session, useExposure, useTopics bool) []entity.Item {
	var out []entity.Item
	for _, it := range candidates {
		if session.AskedItems.Contains(it.ID) {
			continue
		}
		if useExposure && s.exposure.IsOverExposed(it.ID, session.ExamineeID, session.PoolID, session.Config.PreventRepetition) {
			continue
		}
		if useTopics && session.Config.MaxPerTopic > 0 &&
			session.TopicCoverage[it.Topic] >= session.Config.MaxPerTopic {
			continue
		}
		out = append(out, it)
	}
	return out
}

// pick выполняет скоринг и выбор с воспроизводимым тай-брейком
func (s *ItemSelector) pick(candidates []entity.Item, session *entity.Session, sequence int) *entity.Item {
	rng := rand.New(rand.NewSource(selectionSeed(session.ID, sequence)))

	if session.Config.SelectionMethod == entity.SelectionRandom {
		chosen := candidates[rng.Intn(len(candidates))]
		return &chosen
	}

	scored := s.score(candidates, session)

	best := math.Inf(-1)
	for _, sc := range scored {
		if sc.score > best {
			best = sc.score
		}
	}

	// Тай-брейк: равномерный выбор среди кандидатов в пределах epsilon
	// от максимума. Seed от (session id, sequence): воспроизводимо внутри
	// сессии, различно между сессиями.
	var top []scoredItem
	for _, sc := range scored {
		if best-sc.score <= s.config.TieEpsilon {
			top = append(top, sc)
		}
	}
	chosen := top[rng.Intn(len(top))].item
	return &chosen
}

// score вычисляет скор кандидатов: базовый скор — информация Фишера
// в текущей θ; при включённой тем-балансировке вычитается штраф,
// пропорциональный перепредставленности темы; при контроле экспозиции —
// штраф, пропорциональный исторической доле предъявлений.
// Пока нет ни одного ответа (SE не определён), информационный член
// опускается: первое задание выбирается только контент-балансировкой.
func (s *ItemSelector) score(candidates []entity.Item, session *entity.Session) []scoredItem {
	theta := session.CurrentTheta()
	noData := session.StandardError == nil
	answered := session.QuestionsAnswered

	scored := make([]scoredItem, 0, len(candidates))
	for _, it := range candidates {
		var base float64
		if !noData {
			base = Information(it.Discrimination, it.Difficulty, it.Guessing, theta)
		}

		if session.Config.TopicBalancing && answered > 0 {
			share := float64(session.TopicCoverage[it.Topic]) / float64(answered)
			base -= s.config.TopicPenaltyWeight * share
		}

		if session.Config.ExposureControl {
			base -= s.config.ExposurePenaltyWeight * s.exposure.Rate(it.ID, session.PoolID)
		}

		scored = append(scored, scoredItem{item: it, score: base})
	}
	return scored
}

// selectionSeed детерминированно выводит seed из (session id, sequence)
func selectionSeed(sessionID string, sequence int) int64 {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	return int64(h.Sum64()) ^ int64(sequence)<<17
}
