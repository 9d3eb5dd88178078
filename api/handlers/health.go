package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler 健康检查
type HealthHandler struct {
	AI Completer
}

// Health 服务状态探针，上游未配置时返回503
func (h *HealthHandler) Health(c *gin.Context) {
	configured := h.AI.Configured()

	status := "online"
	code := http.StatusOK
	if !configured {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":           status,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"openaiConfigured": configured,
	})
}
