package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cat-engine/internal/domain/entity"
	"github.com/yourusername/cat-engine/internal/handler/dto"
	apperrors "github.com/yourusername/cat-engine/internal/pkg/errors"
	"github.com/yourusername/cat-engine/internal/service"
)

// ItemHandler обрабатывает административные запросы к банку заданий
type ItemHandler struct {
	itemService *service.ItemService
}

// NewItemHandler создает новый обработчик банка заданий
func NewItemHandler(itemService *service.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// CreatePoolRequest представляет запрос на создание пула
type CreatePoolRequest struct {
	TenantID    uint   `json:"tenant_id" binding:"required"`
	Name        string `json:"name" binding:"required,min=3,max=100"`
	Subject     string `json:"subject" binding:"required,max=100"`
	GradeLevel  string `json:"grade_level" binding:"omitempty,max=50"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// CreatePool обрабатывает запрос на создание пула заданий
func (h *ItemHandler) CreatePool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool := &entity.Pool{
		TenantID:    req.TenantID,
		Name:        req.Name,
		Subject:     req.Subject,
		GradeLevel:  req.GradeLevel,
		Description: req.Description,
	}
	if err := h.itemService.CreatePool(pool); err != nil {
		h.handleItemError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewPoolResponse(pool))
}

// GetPool возвращает пул по ID
func (h *ItemHandler) GetPool(c *gin.Context) {
	poolID := c.MustGet("poolID").(uint)

	pool, err := h.itemService.GetPool(poolID)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPoolResponse(pool))
}

// ListPools возвращает пулы арендатора с пагинацией
func (h *ItemHandler) ListPools(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Query("tenant_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant_id"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}

	pools, total, err := h.itemService.ListPools(uint(tenantID), perPage, (page-1)*perPage)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	resp := dto.PaginatedPoolResponse{
		Pools:   make([]*dto.PoolResponse, 0, len(pools)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
	for i := range pools {
		resp.Pools = append(resp.Pools, dto.NewPoolResponse(&pools[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// CreateItemRequest представляет запрос на добавление задания
type CreateItemRequest struct {
	PoolID         uint    `json:"pool_id" binding:"required"`
	Topic          string  `json:"topic" binding:"required,max=100"`
	CognitiveLevel string  `json:"cognitive_level" binding:"omitempty,max=20"`
	Stem           string  `json:"stem" binding:"required,max=2000"`
	CorrectAnswer  string  `json:"correct_answer" binding:"required,max=255"`
	Discrimination float64 `json:"discrimination" binding:"required"`
	Difficulty     float64 `json:"difficulty"`
	Guessing       float64 `json:"guessing"`
}

// CreateItem обрабатывает запрос на добавление откалиброванного задания
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := &entity.Item{
		PoolID:         req.PoolID,
		Topic:          req.Topic,
		CognitiveLevel: req.CognitiveLevel,
		Stem:           req.Stem,
		CorrectAnswer:  req.CorrectAnswer,
		Discrimination: req.Discrimination,
		Difficulty:     req.Difficulty,
		Guessing:       req.Guessing,
	}
	if item.CognitiveLevel == "" {
		item.CognitiveLevel = entity.CognitiveApplication
	}

	if err := h.itemService.CreateItem(item); err != nil {
		h.handleItemError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewItemResponse(item))
}

// GetItem возвращает задание по ID
func (h *ItemHandler) GetItem(c *gin.Context) {
	itemID := c.MustGet("itemID").(uint)

	item, err := h.itemService.GetItem(itemID)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewItemResponse(item))
}

// UpdateItemRequest представляет запрос на рекалибровку задания
type UpdateItemRequest struct {
	Topic          string  `json:"topic" binding:"required,max=100"`
	CognitiveLevel string  `json:"cognitive_level" binding:"omitempty,max=20"`
	Stem           string  `json:"stem" binding:"required,max=2000"`
	CorrectAnswer  string  `json:"correct_answer" binding:"required,max=255"`
	Discrimination float64 `json:"discrimination" binding:"required"`
	Difficulty     float64 `json:"difficulty"`
	Guessing       float64 `json:"guessing"`
}

// UpdateItem обрабатывает запрос на обновление параметров задания
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	itemID := c.MustGet("itemID").(uint)

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.itemService.GetItem(itemID)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	item.Topic = req.Topic
	item.Stem = req.Stem
	item.CorrectAnswer = req.CorrectAnswer
	item.Discrimination = req.Discrimination
	item.Difficulty = req.Difficulty
	item.Guessing = req.Guessing
	if req.CognitiveLevel != "" {
		item.CognitiveLevel = req.CognitiveLevel
	}

	if err := h.itemService.UpdateItem(item); err != nil {
		h.handleItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewItemResponse(item))
}

// RetireItem обрабатывает мягкое изъятие задания из банка
func (h *ItemHandler) RetireItem(c *gin.Context) {
	itemID := c.MustGet("itemID").(uint)

	if err := h.itemService.RetireItem(itemID); err != nil {
		h.handleItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item retired"})
}

// ImportItems обрабатывает импорт банка заданий из XLSX-файла
// (multipart/form-data, поле "file")
func (h *ItemHandler) ImportItems(c *gin.Context) {
	poolID := c.MustGet("poolID").(uint)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	count, err := h.itemService.ImportXLSX(poolID, file)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"imported": count})
}

// handleItemError обрабатывает ошибки сервисов банка заданий и отправляет соответствующий HTTP ответ
func (h *ItemHandler) handleItemError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in ItemHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
