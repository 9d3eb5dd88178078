package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Armin247/Aliva/database"
	"github.com/Armin247/Aliva/models"
	"github.com/Armin247/Aliva/pkg/ai"
	"github.com/Armin247/Aliva/pkg/prompt"
	"github.com/Armin247/Aliva/pkg/quota"
	"github.com/Armin247/Aliva/pkg/safety"

	"github.com/gin-gonic/gin"
)

// Completer 上游模型客户端
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []models.ChatMessage, userMessage string) (string, *models.Usage, error)
	Configured() bool
}

// LocationResolver 位置解析
type LocationResolver interface {
	Resolve(ctx context.Context, header http.Header, loc *models.Location) models.DetectedLocation
}

// 各故障类别的兜底话术
const (
	fallbackDefault       = "I'm experiencing technical difficulties. For healthy eating, prioritize whole foods, stay hydrated, and maintain balanced portions. Please try again shortly."
	fallbackRateLimit     = "I'm receiving too many requests. Please wait a moment and try again."
	fallbackNotConfigured = "I'm temporarily unavailable. For general nutrition advice, focus on balanced meals with vegetables, lean proteins, whole grains, and plenty of water."
)

const limitReachedMessage = "You've reached your daily limit of free consultations. Upgrade your plan to continue chatting with Aliva."

// ChatHandler 聊天编排处理器
type ChatHandler struct {
	Profiles      database.ProfileStore
	Chats         database.ChatStore
	Gate          *quota.Gate
	AI            Completer
	Crisis        *safety.Detector
	Geo           LocationResolver
	HistoryWindow int
}

// Chat 处理一轮聊天
// 流程：校验 → 危机短路 → 位置解析 → 档案加载（尽力）→ 权益闸门 →
// 提示词构建 → 上游调用 → 错误分类/兜底
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	// 身份：令牌优先，其次请求体里的userId
	userID := c.GetString("userID")
	if userID == "" {
		userID = req.UserID
	}

	// 危机短路：不计费、不调上游，直接返回固定安全话术
	if h.Crisis.Match(message) {
		c.JSON(http.StatusOK, models.ChatResponse{Response: safety.CrisisResponse})
		return
	}

	ctx := c.Request.Context()
	now := time.Now()

	detected := h.Geo.Resolve(ctx, c.Request.Header, req.Location)
	var detectedPtr *models.DetectedLocation
	if detected.Country != "" || detected.City != "" {
		detectedPtr = &detected
	}

	// 档案读取失败只降级为无档案，个性化是尽力而为
	var profile *models.UserProfile
	if userID != "" {
		p, err := h.Profiles.GetProfile(ctx, userID)
		switch {
		case err == nil:
			profile = p
		case errors.Is(err, database.ErrNotFound):
			// 没有档案是正常情况
		default:
			log.Printf("Failed to load profile for %s: %v", userID, err)
		}
	}

	// 匿名请求没有可靠的计数键，只有带身份的请求过闸门
	decision := quota.Decision{Unmetered: true, Allowed: true}
	if userID != "" {
		var err error
		decision, err = h.Gate.Allow(ctx, userID, profile, now)
		if err != nil {
			// 计数器故障不阻断聊天，放行并记录
			log.Printf("Quota check failed for %s: %v", userID, err)
			decision = quota.Decision{Unmetered: true, Allowed: true}
		}
		if !decision.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             limitReachedMessage,
				"remainingRequests": 0,
				"limitReached":      true,
			})
			return
		}
	}

	systemPrompt := prompt.Build(detectedPtr, profile)
	history := req.ChatHistory
	if h.HistoryWindow > 0 && len(history) > h.HistoryWindow {
		history = history[len(history)-h.HistoryWindow:]
	}

	reply, usage, err := h.AI.Complete(ctx, systemPrompt, history, message)
	if err != nil {
		// 配额只对成功送达的回复计费
		if !decision.Unmetered {
			if refundErr := h.Gate.Refund(ctx, userID, now); refundErr != nil {
				log.Printf("Failed to refund quota for %s: %v", userID, refundErr)
			}
		}
		h.respondUpstreamError(c, err)
		return
	}

	if userID != "" {
		record := models.ChatRecord{
			UserID:  userID,
			Message: message,
			Reply:   reply,
			Country: detected.Country,
			City:    detected.City,
			AskedAt: now,
		}
		if err := h.Chats.SaveRecord(ctx, &record); err != nil {
			log.Printf("Failed to save chat record for %s: %v", userID, err)
		}
	}

	resp := models.ChatResponse{
		Response:         reply,
		Usage:            usage,
		DetectedLocation: detectedPtr,
	}
	if !decision.Unmetered {
		remaining := decision.Remaining
		resp.RemainingRequests = &remaining
	}
	c.JSON(http.StatusOK, resp)
}

// respondUpstreamError 按错误类别回应，兜底话术代替上游错误文本
func (h *ChatHandler) respondUpstreamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		log.Println("Chat request rejected: upstream client not configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":            "AI service not configured",
			"fallbackResponse": fallbackNotConfigured,
		})
	case errors.Is(err, ai.ErrAuth):
		// 配置故障只进日志，客户端看到的是通用不可用
		log.Println("Upstream authentication failed: check OPENAI_API_KEY")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":            "AI service unavailable",
			"fallbackResponse": fallbackDefault,
		})
	case errors.Is(err, ai.ErrQuota):
		log.Println("Upstream quota exceeded")
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":            "AI service quota exceeded",
			"fallbackResponse": fallbackDefault,
		})
	case errors.Is(err, ai.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":            "AI service is busy",
			"fallbackResponse": fallbackRateLimit,
		})
	default:
		log.Printf("Upstream call failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":            "AI service temporarily unavailable",
			"fallbackResponse": fallbackDefault,
		})
	}
}

// History 获取登录用户最近的对话存档
func (h *ChatHandler) History(c *gin.Context) {
	userID := c.GetString("userID")

	records, err := h.Chats.ListRecords(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   len(records),
		"records": records,
	})
}
