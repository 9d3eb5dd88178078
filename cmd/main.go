package main

import (
	"log"

	"github.com/Armin247/Aliva/api"
	"github.com/Armin247/Aliva/api/handlers"
	"github.com/Armin247/Aliva/configs"
	"github.com/Armin247/Aliva/database"
	"github.com/Armin247/Aliva/pkg/ai"
	"github.com/Armin247/Aliva/pkg/geo"
	"github.com/Armin247/Aliva/pkg/quota"
	"github.com/Armin247/Aliva/pkg/safety"
	"github.com/Armin247/Aliva/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化JWT
	utils.InitJWT(cfg)

	// 初始化数据库连接
	if err := database.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	store := database.NewGormStore(database.DB)

	aiClient := ai.NewClient(cfg)
	if !aiClient.Configured() {
		log.Println("Warning: OPENAI_API_KEY not configured, /api/chat will return fallback responses")
	}

	h := &api.Handlers{
		Auth: &handlers.AuthHandler{Users: store},
		Chat: &handlers.ChatHandler{
			Profiles:      store,
			Chats:         store,
			Gate:          quota.NewGate(store, cfg.Quota.FreeDailyLimit),
			AI:            aiClient,
			Crisis:        safety.NewDetector(),
			Geo:           geo.NewResolver(),
			HistoryWindow: cfg.AI.HistoryWindow,
		},
		Profile: &handlers.ProfileHandler{Profiles: store},
		Payment: &handlers.PaymentHandler{
			Profiles:  store,
			Payments:  store,
			SecretKey: cfg.Paystack.SecretKey,
		},
		Health: &handlers.HealthHandler{AI: aiClient},
	}

	// 创建Gin实例
	router := gin.Default()

	// 跨域放开给所有前端来源，OPTIONS预检直接200
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	// 设置路由
	api.SetupRouter(router, h)

	// 启动服务器
	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
