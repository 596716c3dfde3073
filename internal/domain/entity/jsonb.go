package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Типизированные JSONB-колонки. Динамические JSON-поля исходной модели
// (asked_questions, topic_coverage, ability_history) заменены строго
// типизированными структурами, валидируемыми на границе сессии.

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	return scanJSONB(value, o, func() { *o = StringArray{} })
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// UintArray — упорядоченный список ID заданий (без дубликатов по инварианту сессии)
type UintArray []uint

// Scan реализует интерфейс sql.Scanner для UintArray
func (o *UintArray) Scan(value interface{}) error {
	return scanJSONB(value, o, func() { *o = UintArray{} })
}

// Value реализует интерфейс driver.Valuer для UintArray
func (o UintArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Contains проверяет наличие ID в списке
func (o UintArray) Contains(id uint) bool {
	for _, v := range o {
		if v == id {
			return true
		}
	}
	return false
}

// TopicCountMap — счётчики покрытия тем в рамках сессии
type TopicCountMap map[string]int

// Scan реализует интерфейс sql.Scanner для TopicCountMap
func (o *TopicCountMap) Scan(value interface{}) error {
	return scanJSONB(value, o, func() { *o = TopicCountMap{} })
}

// Value реализует интерфейс driver.Valuer для TopicCountMap
func (o TopicCountMap) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(o)
}

// AbilityPoint — точка траектории способности: θ после ответа с номером Sequence
type AbilityPoint struct {
	Sequence int     `json:"sequence"`
	Theta    float64 `json:"theta"`
}

// AbilityTrace — упорядоченная история оценок θ по ходу сессии
type AbilityTrace []AbilityPoint

// Scan реализует интерфейс sql.Scanner для AbilityTrace
func (o *AbilityTrace) Scan(value interface{}) error {
	return scanJSONB(value, o, func() { *o = AbilityTrace{} })
}

// Value реализует интерфейс driver.Valuer для AbilityTrace
func (o AbilityTrace) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// scanJSONB — общая часть Scan для JSONB-колонок: NULL и пустые значения
// превращаются в пустую структуру, остальное анмаршалится
func scanJSONB(value interface{}, dest interface{}, reset func()) error {
	if value == nil {
		reset()
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		reset()
		return nil
	}
	return json.Unmarshal(bytes, dest)
}
