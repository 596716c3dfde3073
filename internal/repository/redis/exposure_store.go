package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// defaultRecentWindow — глубина окна "недавних" заданий экзаменуемого
// для prevent_repetition
const defaultRecentWindow = 50

// ExposureStore реализует repository.ExposureStore на Redis.
// Счётчики пишутся атомарными INCR: конкурентные сессии не теряют
// обновлений и не требуют блокировок. Данные накапливаются монотонно,
// очистка — внешняя политика ретенции (отдельный процесс или TTL).
//
// Ключи:
//
//	exposure:pool:{poolID}:sessions      — счётчик сессий пула (знаменатель)
//	exposure:item:{itemID}:count         — счётчик предъявлений задания
//	exposure:examinee:{examineeID}:recent — список недавних item id (окно)
type ExposureStore struct {
	client       redis.UniversalClient
	ctx          context.Context
	recentWindow int
}

// NewExposureStore создает новое Redis-хранилище журнала экспозиции
func NewExposureStore(client redis.UniversalClient) (*ExposureStore, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for ExposureStore")
	}
	return &ExposureStore{
		client:       client,
		ctx:          context.Background(),
		recentWindow: defaultRecentWindow,
	}, nil
}

// RegisterSession учитывает старт новой сессии пула
func (s *ExposureStore) RegisterSession(poolID uint, sessionID string) error {
	return s.client.Incr(s.ctx, poolSessionsKey(poolID)).Err()
}

// Record фиксирует предъявление задания: инкремент счётчика задания
// и добавление в окно недавних заданий экзаменуемого. Обе записи
// атомарны по отдельности; строгая согласованность между ними не
// требуется — это статистика, а не состояние сессии.
func (s *ExposureStore) Record(itemID, examineeID uint, sessionID string, ts time.Time) error {
	if err := s.client.Incr(s.ctx, itemCountKey(itemID)).Err(); err != nil {
		return err
	}

	recentKey := examineeRecentKey(examineeID)
	pipe := s.client.TxPipeline()
	pipe.LPush(s.ctx, recentKey, itemID)
	pipe.LTrim(s.ctx, recentKey, 0, int64(s.recentWindow-1))
	_, err := pipe.Exec(s.ctx)
	return err
}

// Rate возвращает долю сессий пула, в которых предъявлялось задание.
// Пока по пулу нет ни одной сессии, доля равна 0.
func (s *ExposureStore) Rate(itemID, poolID uint) (float64, error) {
	sessions, err := s.getCounter(poolSessionsKey(poolID))
	if err != nil {
		return 0, err
	}
	if sessions == 0 {
		return 0, nil
	}

	count, err := s.getCounter(itemCountKey(itemID))
	if err != nil {
		return 0, err
	}
	return float64(count) / float64(sessions), nil
}

// RecentForExaminee отвечает, есть ли задание в окне недавних
// предъявлений этого экзаменуемого
func (s *ExposureStore) RecentForExaminee(examineeID, itemID uint) (bool, error) {
	recent, err := s.client.LRange(s.ctx, examineeRecentKey(examineeID), 0, int64(s.recentWindow-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	needle := strconv.FormatUint(uint64(itemID), 10)
	for _, v := range recent {
		if v == needle {
			return true, nil
		}
	}
	return false, nil
}

// getCounter читает целочисленный счётчик; отсутствующий ключ — 0
func (s *ExposureStore) getCounter(key string) (int64, error) {
	val, err := s.client.Get(s.ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return val, nil
}

func poolSessionsKey(poolID uint) string {
	return fmt.Sprintf("exposure:pool:%d:sessions", poolID)
}

func itemCountKey(itemID uint) string {
	return fmt.Sprintf("exposure:item:%d:count", itemID)
}

func examineeRecentKey(examineeID uint) string {
	return fmt.Sprintf("exposure:examinee:%d:recent", examineeID)
}
