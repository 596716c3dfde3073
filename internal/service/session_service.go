package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/domain/repository"
	"github.com/yourusername/cat-engine/internal/service/catengine"
)

// SessionService оборачивает адаптивный движок персистентностью и
// сериализацией. Движок не держит блокировок: ответы одной сессии
// применяются строго последовательно, поэтому сервис держит реестр
// мьютексов по session id. Разные сессии обрабатываются параллельно.
type SessionService struct {
	engine      *catengine.Engine
	poolRepo    repository.PoolRepository
	sessionRepo repository.SessionRepository
	itemRepo    repository.ItemRepository

	// locks: session id -> *sync.Mutex. Реестр монотонно растёт в
	// пределах процесса; мьютекс терминальной сессии больше не берётся.
	locks sync.Map
}

// NewSessionService создает новый сервис сессий
func NewSessionService(
	engine *catengine.Engine,
	poolRepo repository.PoolRepository,
	sessionRepo repository.SessionRepository,
	itemRepo repository.ItemRepository,
) *SessionService {
	return &SessionService{
		engine:      engine,
		poolRepo:    poolRepo,
		sessionRepo: sessionRepo,
		itemRepo:    itemRepo,
	}
}

// Start создает сессию и возвращает состояние с первым предъявленным заданием
func (s *SessionService) Start(poolID, examineeID uint, cfg entity.SessionConfig) (*catengine.SessionState, error) {
	pool, err := s.poolRepo.GetByID(poolID)
	if err != nil {
		return nil, fmt.Errorf("pool %d: %w", poolID, err)
	}

	state, err := s.engine.StartSession(pool, examineeID, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Save(state.Session); err != nil {
		return nil, fmt.Errorf("failed to persist session %s: %w", state.Session.ID, err)
	}
	return state, nil
}

// Submit применяет ответ на текущее ожидаемое задание сессии.
// Вызовы по одной сессии сериализуются; порядок персистентности —
// сначала append-only ответ (уникальный индекс отсекает гонку двойного
// сабмита и на другом инстансе), затем снапшот сессии.
func (s *SessionService) Submit(sessionID string, itemID uint, rawAnswer string) (*catengine.SessionState, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.loadState(sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.SubmitResponse(state, itemID, rawAnswer, time.Now()); err != nil {
		return nil, err
	}

	last := &state.Responses[len(state.Responses)-1]
	if err := s.sessionRepo.AppendResponse(last); err != nil {
		return nil, fmt.Errorf("failed to persist response for session %s: %w", sessionID, err)
	}
	if err := s.sessionRepo.Save(state.Session); err != nil {
		return nil, fmt.Errorf("failed to persist session %s: %w", sessionID, err)
	}
	return state, nil
}

// Abandon прерывает сессию. Идемпотентно: прерывание терминальной
// сессии — no-op.
func (s *SessionService) Abandon(sessionID string) (*catengine.SessionState, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.loadState(sessionID)
	if err != nil {
		return nil, err
	}

	if state.Session.IsTerminal() {
		return state, nil
	}

	s.engine.AbandonSession(state)
	if err := s.sessionRepo.Save(state.Session); err != nil {
		return nil, fmt.Errorf("failed to persist session %s: %w", sessionID, err)
	}
	return state, nil
}

// Get возвращает текущее состояние сессии
func (s *SessionService) Get(sessionID string) (*catengine.SessionState, error) {
	return s.loadState(sessionID)
}

// loadState восстанавливает состояние сессии из хранилища:
// сессия, ответы в порядке sequence и ожидаемое задание
func (s *SessionService) loadState(sessionID string) (*catengine.SessionState, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	responses, err := s.sessionRepo.GetResponses(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses for session %s: %w", sessionID, err)
	}

	state := &catengine.SessionState{
		Session:   session,
		Responses: responses,
	}

	if session.PendingItemID != nil {
		item, err := s.itemRepo.GetByID(*session.PendingItemID)
		if err != nil {
			return nil, fmt.Errorf("pending item %d for session %s: %w", *session.PendingItemID, sessionID, err)
		}
		state.PendingItem = item
	}
	return state, nil
}

// lockFor возвращает мьютекс сессии, создавая его при первом обращении
func (s *SessionService) lockFor(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
