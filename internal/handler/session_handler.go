package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/handler/dto"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
	"github.com/yourusername/cat-engine/internal/service"
)

// SessionHandler обрабатывает запросы жизненного цикла адаптивных сессий
type SessionHandler struct {
	sessionService *service.SessionService
	reportService  *service.ReportService
}

// NewSessionHandler создает новый обработчик сессий
func NewSessionHandler(
	sessionService *service.SessionService,
	reportService *service.ReportService,
) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		reportService:  reportService,
	}
}

// StartSessionRequest представляет запрос на старт сессии
type StartSessionRequest struct {
	PoolID     uint                 `json:"pool_id" binding:"required"`
	ExamineeID uint                 `json:"examinee_id" binding:"required"`
	Config     entity.SessionConfig `json:"config"`
}

// StartSession обрабатывает запрос на старт адаптивной сессии
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.sessionService.Start(req.PoolID, req.ExamineeID, req.Config)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewSessionResponse(state))
}

// GetSession возвращает текущее состояние сессии
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)

	state, err := h.sessionService.Get(sessionID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(state))
}

// SubmitResponseRequest представляет ответ на предъявленное задание
type SubmitResponseRequest struct {
	ItemID    uint   `json:"item_id" binding:"required"`
	RawAnswer string `json:"raw_answer"`
}

// SubmitResponse обрабатывает ответ на текущее задание сессии
func (h *SessionHandler) SubmitResponse(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)

	var req SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.sessionService.Submit(sessionID, req.ItemID, req.RawAnswer)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(state))
}

// AbandonSession обрабатывает явное прерывание сессии
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)

	state, err := h.sessionService.Abandon(sessionID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(state))
}

// GetReport возвращает итоговый отчёт завершённой сессии,
// генерируя его при первом обращении
func (h *SessionHandler) GetReport(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)

	report, err := h.reportService.GetOrGenerate(sessionID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewReportResponse(report))
}

// handleSessionError обрабатывает ошибки сервисов сессий и отправляет соответствующий HTTP ответ
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidSequence),
		errors.Is(err, apperrors.ErrSessionTerminal),
		errors.Is(err, apperrors.ErrSessionNotComplete),
		errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrEmptyPool):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in SessionHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
