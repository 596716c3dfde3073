package dto

import (
	"math"
	"time"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/service/catengine"
)

// PendingItemResponse представляет предъявляемое задание в формате для
// клиента. Ключ и IRT-параметры наружу не отдаются.
type PendingItemResponse struct {
	ID             uint   `json:"id"`
	Topic          string `json:"topic"`
	CognitiveLevel string `json:"cognitive_level"`
	Stem           string `json:"stem"`
}

// SessionResponse представляет состояние сессии в формате для клиента
type SessionResponse struct {
	ID                string               `json:"id"`
	PoolID            uint                 `json:"pool_id"`
	ExamineeID        uint                 `json:"examinee_id"`
	Status            string               `json:"status"`
	StopReason        string               `json:"stop_reason,omitempty"`
	Theta             *float64             `json:"theta,omitempty"`
	StandardError     *float64             `json:"standard_error,omitempty"`
	QuestionsAnswered int                  `json:"questions_answered"`
	TopicCoverage     entity.TopicCountMap `json:"topic_coverage"`
	AbilityHistory    entity.AbilityTrace  `json:"ability_history"`
	PendingItem       *PendingItemResponse `json:"pending_item,omitempty"`
	StartedAt         time.Time            `json:"started_at"`
	FinishedAt        *time.Time           `json:"finished_at,omitempty"`
}

// NewSessionResponse создает DTO состояния сессии
func NewSessionResponse(state *catengine.SessionState) *SessionResponse {
	session := state.Session
	resp := &SessionResponse{
		ID:                session.ID,
		PoolID:            session.PoolID,
		ExamineeID:        session.ExamineeID,
		Status:            session.Status,
		StopReason:        session.StopReason,
		Theta:             session.Theta,
		QuestionsAnswered: session.QuestionsAnswered,
		TopicCoverage:     session.TopicCoverage,
		AbilityHistory:    session.AbilityHistory,
		StartedAt:         session.StartedAt,
		FinishedAt:        session.FinishedAt,
	}

	// +Inf SE (ни одного ответа) не сериализуется в JSON — опускаем
	if session.StandardError != nil && !math.IsInf(*session.StandardError, 0) {
		resp.StandardError = session.StandardError
	}

	if state.PendingItem != nil {
		resp.PendingItem = &PendingItemResponse{
			ID:             state.PendingItem.ID,
			Topic:          state.PendingItem.Topic,
			CognitiveLevel: state.PendingItem.CognitiveLevel,
			Stem:           state.PendingItem.Stem,
		}
	}
	return resp
}

// ReportResponse представляет итоговый отчёт в формате для клиента
type ReportResponse struct {
	SessionID             string               `json:"session_id"`
	FinalTheta            float64              `json:"final_theta"`
	FinalSE               float64              `json:"final_se"`
	Percentile            float64              `json:"percentile"`
	TopicBreakdown        entity.TopicScoreMap `json:"topic_breakdown"`
	Strengths             entity.StringArray   `json:"strengths"`
	Weaknesses            entity.StringArray   `json:"weaknesses"`
	Consistency           float64              `json:"consistency"`
	ConsistencyFlagged    bool                 `json:"consistency_flagged"`
	RecommendedTopics     entity.StringArray   `json:"recommended_topics"`
	RecommendedDifficulty float64              `json:"recommended_difficulty"`
	GeneratedAt           time.Time            `json:"generated_at"`
}

// NewReportResponse создает DTO отчёта
func NewReportResponse(report *entity.Report) *ReportResponse {
	return &ReportResponse{
		SessionID:             report.SessionID,
		FinalTheta:            report.FinalTheta,
		FinalSE:               report.FinalSE,
		Percentile:            report.Percentile,
		TopicBreakdown:        report.TopicBreakdown,
		Strengths:             report.Strengths,
		Weaknesses:            report.Weaknesses,
		Consistency:           report.Consistency,
		ConsistencyFlagged:    report.ConsistencyFlagged,
		RecommendedTopics:     report.RecommendedTopics,
		RecommendedDifficulty: report.RecommendedDifficulty,
		GeneratedAt:           report.GeneratedAt,
	}
}
