package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExtractUintParam создает middleware для извлечения и валидации числового параметра URL.
// paramName - имя параметра в URL (например, "id").
// contextKey - ключ, под которым значение будет сохранено в контексте Gin.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		// Сохраняем как uint для единообразия
		c.Set(contextKey, uint(id))
		c.Next()
	}
}

// ExtractUUIDParam создает middleware для извлечения и валидации UUID-параметра URL.
// Идентификаторы сессий — UUID-строки, а не числовые ID.
func ExtractUUIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if _, err := uuid.Parse(idStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, idStr)
		c.Next()
	}
}
