// Симулятор адаптивного тестирования: прогоняет синтетических
// экзаменуемых с известной истинной способностью θ* через движок
// на сгенерированном банке и печатает смещение и RMSE итоговых оценок.
// Инструмент калибровки: позволяет проверить настройки движка до
// выпуска на живых экзаменуемых.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/service/catengine"
)

func main() {
	var (
		examinees = flag.Int("examinees", 200, "число синтетических экзаменуемых")
		poolSize  = flag.Int("pool", 120, "размер сгенерированного банка заданий")
		maxQ      = flag.Int("max-questions", 20, "максимум вопросов на сессию")
		seTarget  = flag.Float64("se-target", 0.35, "целевая стандартная ошибка")
		method    = flag.String("method", entity.EstimationEAP, "метод оценивания: eap | mle")
		seed      = flag.Int64("seed", 42, "seed генератора")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	itemRepo := newMemoryItemRepo(generateBank(*poolSize, rng))
	engine := catengine.NewEngine(catengine.DefaultConfig(), &catengine.Dependencies{
		ItemRepo: itemRepo,
		Exposure: newMemoryExposureStore(),
		RefDist:  catengine.StandardNormal{},
	})

	cfg := entity.SessionConfig{
		MaxQuestions:     *maxQ,
		MinQuestions:     5,
		SETarget:         *seTarget,
		EstimationMethod: *method,
		SelectionMethod:  entity.SelectionMaxInformation,
		ExposureControl:  true,
		TopicBalancing:   true,
	}
	pool := &entity.Pool{ID: 1, TenantID: 1, Name: "simulated", Subject: "synthetic"}

	var (
		sqErrSum, biasSum float64
		lengthSum         int
		stopReasons       = map[string]int{}
	)

	start := time.Now()
	for i := 0; i < *examinees; i++ {
		trueTheta := rng.NormFloat64()
		if trueTheta < -3.5 {
			trueTheta = -3.5
		}
		if trueTheta > 3.5 {
			trueTheta = 3.5
		}

		state, err := engine.StartSession(pool, uint(i+1), cfg)
		if err != nil {
			log.Printf("examinee %d: failed to start session: %v", i+1, err)
			os.Exit(1)
		}

		// Отвечаем, пока машина состояний не остановит сессию
		for state.PendingItem != nil {
			item := state.PendingItem
			p := catengine.Probability(item.Discrimination, item.Difficulty, item.Guessing, trueTheta)
			answer := "wrong"
			if rng.Float64() < p {
				answer = item.CorrectAnswer
			}
			if err := engine.SubmitResponse(state, item.ID, answer, time.Now()); err != nil {
				log.Printf("examinee %d: submit failed: %v", i+1, err)
				os.Exit(1)
			}
		}

		est := state.Session.CurrentTheta()
		biasSum += est - trueTheta
		sqErrSum += (est - trueTheta) * (est - trueTheta)
		lengthSum += state.Session.QuestionsAnswered
		stopReasons[state.Session.StopReason]++
	}
	elapsed := time.Since(start)

	n := float64(*examinees)
	fmt.Printf("Simulated %d examinees against a %d-item bank in %s\n", *examinees, *poolSize, elapsed.Round(time.Millisecond))
	fmt.Printf("  method:      %s\n", *method)
	fmt.Printf("  bias:        %+.4f\n", biasSum/n)
	fmt.Printf("  RMSE:        %.4f\n", math.Sqrt(sqErrSum/n))
	fmt.Printf("  avg length:  %.1f questions\n", float64(lengthSum)/n)

	reasons := make([]string, 0, len(stopReasons))
	for r := range stopReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  stop %-22s %d\n", r+":", stopReasons[r])
	}
}

// generateBank создаёт синтетический банк с правдоподобным разбросом
// IRT-параметров и равномерным покрытием тем
func generateBank(size int, rng *rand.Rand) []entity.Item {
	topics := []string{"algebra", "geometry", "statistics", "arithmetic"}
	items := make([]entity.Item, 0, size)
	for i := 0; i < size; i++ {
		items = append(items, entity.Item{
			ID:             uint(i + 1),
			PoolID:         1,
			Discrimination: 0.5 + rng.Float64()*1.5, // a ∈ [0.5, 2.0]
			Difficulty:     rng.NormFloat64() * 1.2, // b ~ N(0, 1.2)
			Guessing:       rng.Float64() * 0.25,    // c ∈ [0, 0.25]
			Topic:          topics[i%len(topics)],
			CognitiveLevel: entity.CognitiveApplication,
			Stem:           fmt.Sprintf("synthetic item #%d", i+1),
			CorrectAnswer:  "correct",
			IsActive:       true,
		})
	}
	return items
}

// memoryItemRepo — банк заданий в памяти для симуляции
type memoryItemRepo struct {
	mu    sync.RWMutex
	items map[uint]entity.Item
}

func newMemoryItemRepo(items []entity.Item) *memoryItemRepo {
	m := &memoryItemRepo{items: make(map[uint]entity.Item, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *memoryItemRepo) Create(item *entity.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = *item
	return nil
}

func (m *memoryItemRepo) CreateBatch(items []entity.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.ID] = it
	}
	return nil
}

func (m *memoryItemRepo) GetByID(id uint) (*entity.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d not found", id)
	}
	return &it, nil
}

func (m *memoryItemRepo) GetEligible(poolID uint, excludeIDs []uint) ([]entity.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	excluded := make(map[uint]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []entity.Item
	for _, it := range m.items {
		if it.PoolID == poolID && it.IsActive && !excluded[it.ID] {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryItemRepo) CountActive(poolID uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, it := range m.items {
		if it.PoolID == poolID && it.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memoryItemRepo) Update(item *entity.Item) error {
	return m.Create(item)
}

func (m *memoryItemRepo) Retire(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %d not found", id)
	}
	it.IsActive = false
	m.items[id] = it
	return nil
}

// memoryExposureStore — журнал экспозиции в памяти для симуляции
type memoryExposureStore struct {
	mu       sync.Mutex
	sessions map[uint]int64
	counts   map[uint]int64
	recent   map[uint][]uint
}

func newMemoryExposureStore() *memoryExposureStore {
	return &memoryExposureStore{
		sessions: map[uint]int64{},
		counts:   map[uint]int64{},
		recent:   map[uint][]uint{},
	}
}

func (s *memoryExposureStore) RegisterSession(poolID uint, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[poolID]++
	return nil
}

func (s *memoryExposureStore) Record(itemID, examineeID uint, sessionID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[itemID]++
	s.recent[examineeID] = append([]uint{itemID}, s.recent[examineeID]...)
	if len(s.recent[examineeID]) > 50 {
		s.recent[examineeID] = s.recent[examineeID][:50]
	}
	return nil
}

func (s *memoryExposureStore) Rate(itemID, poolID uint) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[poolID] == 0 {
		return 0, nil
	}
	return float64(s.counts[itemID]) / float64(s.sessions[poolID]), nil
}

func (s *memoryExposureStore) RecentForExaminee(examineeID, itemID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.recent[examineeID] {
		if id == itemID {
			return true, nil
		}
	}
	return false, nil
}
