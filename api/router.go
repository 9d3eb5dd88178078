package api

import (
	"github.com/Armin247/Aliva/api/handlers"
	"github.com/Armin247/Aliva/api/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Auth    *handlers.AuthHandler
	Chat    *handlers.ChatHandler
	Profile *handlers.ProfileHandler
	Payment *handlers.PaymentHandler
	Health  *handlers.HealthHandler
}

// SetupRouter 设置API路由
func SetupRouter(router *gin.Engine, h *Handlers) {
	// 公共API
	public := router.Group("/api")
	{
		public.GET("/health", h.Health.Health)

		// 认证相关
		public.POST("/auth/login", h.Auth.Login)
		public.POST("/auth/register", h.Auth.Register)

		// 支付回调
		public.POST("/payments/webhook", h.Payment.Webhook)

		// 聊天允许匿名体验，带令牌时解析身份
		public.POST("/chat", middleware.OptionalAuth(), h.Chat.Chat)
	}

	// 需要认证的API
	authorized := router.Group("/api")
	authorized.Use(middleware.Auth())
	{
		// 档案相关
		authorized.GET("/profile", h.Profile.GetProfile)
		authorized.PUT("/profile", h.Profile.SaveProfile)
		authorized.POST("/profile/weight", h.Profile.LogWeight)

		// 对话存档
		authorized.GET("/chat/history", h.Chat.History)
	}
}
