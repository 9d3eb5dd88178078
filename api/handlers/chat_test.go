package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Armin247/Aliva/database"
	"github.com/Armin247/Aliva/models"
	"github.com/Armin247/Aliva/pkg/ai"
	"github.com/Armin247/Aliva/pkg/quota"
	"github.com/Armin247/Aliva/pkg/safety"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// spyCompleter 记录上游调用情况的测试替身
type spyCompleter struct {
	calls        int
	lastSystem   string
	lastHistory  []models.ChatMessage
	lastMessage  string
	reply        string
	err          error
	unconfigured bool
}

func (s *spyCompleter) Complete(_ context.Context, systemPrompt string, history []models.ChatMessage, userMessage string) (string, *models.Usage, error) {
	s.calls++
	s.lastSystem = systemPrompt
	s.lastHistory = history
	s.lastMessage = userMessage
	if s.err != nil {
		return "", nil, s.err
	}
	return s.reply, &models.Usage{TotalTokens: 42}, nil
}

func (s *spyCompleter) Configured() bool {
	return !s.unconfigured
}

// stubResolver 不出网的位置解析替身
type stubResolver struct {
	loc models.DetectedLocation
}

func (s *stubResolver) Resolve(_ context.Context, _ http.Header, _ *models.Location) models.DetectedLocation {
	return s.loc
}

type chatEnv struct {
	store  *database.MemoryStore
	spy    *spyCompleter
	router *gin.Engine
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := database.NewMemoryStore()
	spy := &spyCompleter{reply: "Eat more vegetables."}

	handler := &ChatHandler{
		Profiles:      store,
		Chats:         store,
		Gate:          quota.NewGate(store, 3),
		AI:            spy,
		Crisis:        safety.NewDetector(),
		Geo:           &stubResolver{},
		HistoryWindow: 8,
	}

	router := gin.New()
	router.POST("/api/chat", handler.Chat)
	router.GET("/api/health", (&HealthHandler{AI: spy}).Health)

	return &chatEnv{store: store, spy: spy, router: router}
}

func (e *chatEnv) post(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestChatEmptyMessage(t *testing.T) {
	env := newChatEnv(t)

	// 空消息和纯空白消息都要400，且不会触发上游
	for _, msg := range []string{"", "   ", "\n\t"} {
		w := env.post(t, models.ChatRequest{Message: msg})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Message is required", resp["error"])
	}
	assert.Equal(t, 0, env.spy.calls)
}

func TestChatAnonymousSuccess(t *testing.T) {
	env := newChatEnv(t)

	w := env.post(t, models.ChatRequest{Message: "Suggest a healthy breakfast"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "Eat more vegetables.", resp.Response)
	assert.Nil(t, resp.RemainingRequests)
	assert.Equal(t, 1, env.spy.calls)
}

func TestChatEndToEndWithProfile(t *testing.T) {
	// 规格样例：免费用户u1，档案带peanuts过敏，count=0
	env := newChatEnv(t)
	env.store.UpsertProfile(context.Background(), &models.UserProfile{
		UserID:    "u1",
		Plan:      models.PlanFree,
		Allergies: []string{"peanuts"},
	})

	w := env.post(t, models.ChatRequest{Message: "Suggest a high-fiber breakfast", UserID: "u1"})
	assert.Equal(t, http.StatusOK, w.Code)

	// 上游收到的system提示词必须包含过敏原和MUST AVOID标记
	assert.Contains(t, env.spy.lastSystem, "peanuts")
	assert.Contains(t, env.spy.lastSystem, "MUST AVOID")

	// 计数走到1，剩余2
	var resp models.ChatResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NotNil(t, resp.RemainingRequests)
	assert.Equal(t, 2, *resp.RemainingRequests)
	assert.Equal(t, 1, env.store.Count("u1", models.CounterDate(time.Now())))
}

func TestChatDailyLimitBlocks(t *testing.T) {
	env := newChatEnv(t)

	for i := 0; i < 3; i++ {
		w := env.post(t, models.ChatRequest{Message: "hello", UserID: "u1"})
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 3, env.spy.calls)

	// 超过限额后拦截，且不再调用上游
	w := env.post(t, models.ChatRequest{Message: "hello again", UserID: "u1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(0), resp["remainingRequests"])
	assert.Equal(t, true, resp["limitReached"])
	assert.Equal(t, 3, env.spy.calls)
}

func TestChatPaidUserUnlimited(t *testing.T) {
	env := newChatEnv(t)
	expires := time.Now().Add(30 * 24 * time.Hour)
	env.store.UpsertProfile(context.Background(), &models.UserProfile{
		UserID:        "u2",
		Plan:          models.PlanPremium,
		PlanExpiresAt: &expires,
	})

	for i := 0; i < 5; i++ {
		w := env.post(t, models.ChatRequest{Message: "hello", UserID: "u2"})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp models.ChatResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Nil(t, resp.RemainingRequests)
	}
	assert.Equal(t, 0, env.store.Count("u2", models.CounterDate(time.Now())))
}

func TestChatCrisisShortCircuit(t *testing.T) {
	env := newChatEnv(t)

	w := env.post(t, models.ChatRequest{Message: "I want to kill myself", UserID: "u1"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, safety.CrisisResponse, resp.Response)

	// 不调上游、不消耗配额
	assert.Equal(t, 0, env.spy.calls)
	assert.Equal(t, 0, env.store.Count("u1", models.CounterDate(time.Now())))
}

func TestChatCrisisNegativeControl(t *testing.T) {
	env := newChatEnv(t)

	w := env.post(t, models.ChatRequest{Message: "how do I kill the boss at chess"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.spy.calls)

	var resp models.ChatResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NotEqual(t, safety.CrisisResponse, resp.Response)
}

func TestChatHistoryBounded(t *testing.T) {
	env := newChatEnv(t)

	history := make([]models.ChatMessage, 20)
	for i := range history {
		history[i] = models.ChatMessage{Role: models.RoleUser, Content: "turn"}
	}

	w := env.post(t, models.ChatRequest{Message: "hello", ChatHistory: history})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.spy.lastHistory, 8)
}

func TestChatUpstreamFailureRefundsQuota(t *testing.T) {
	env := newChatEnv(t)
	env.spy.err = ai.ErrTransient

	w := env.post(t, models.ChatRequest{Message: "hello", UserID: "u1"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NotEmpty(t, resp["fallbackResponse"])

	// 失败的调用不消耗当日配额
	assert.Equal(t, 0, env.store.Count("u1", models.CounterDate(time.Now())))
}

func TestChatUpstreamErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"auth", ai.ErrAuth, http.StatusInternalServerError},
		{"quota", ai.ErrQuota, http.StatusPaymentRequired},
		{"rate limit", ai.ErrRateLimited, http.StatusTooManyRequests},
		{"transient", ai.ErrTransient, http.StatusServiceUnavailable},
		{"not configured", ai.ErrNotConfigured, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newChatEnv(t)
			env.spy.err = tc.err

			w := env.post(t, models.ChatRequest{Message: "hello"})
			assert.Equal(t, tc.wantStatus, w.Code)

			var resp map[string]interface{}
			json.Unmarshal(w.Body.Bytes(), &resp)
			assert.NotEmpty(t, resp["error"])
			assert.NotEmpty(t, resp["fallbackResponse"])
			// 上游的原始错误文本不能出现在响应里
			assert.NotContains(t, w.Body.String(), "ai: upstream")
		})
	}
}

func TestChatProfileStoreFailureDegrades(t *testing.T) {
	// 档案读取失败不阻断聊天，按无档案继续
	gin.SetMode(gin.TestMode)
	store := database.NewMemoryStore()
	spy := &spyCompleter{reply: "ok"}

	handler := &ChatHandler{
		Profiles:      failingProfiles{},
		Chats:         store,
		Gate:          quota.NewGate(store, 3),
		AI:            spy,
		Crisis:        safety.NewDetector(),
		Geo:           &stubResolver{},
		HistoryWindow: 8,
	}
	router := gin.New()
	router.POST("/api/chat", handler.Chat)

	body, _ := json.Marshal(models.ChatRequest{Message: "hello", UserID: "u1"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, spy.calls)
}

// failingProfiles 模拟档案库故障
type failingProfiles struct{}

func (failingProfiles) GetProfile(context.Context, string) (*models.UserProfile, error) {
	return nil, assert.AnError
}
func (failingProfiles) UpsertProfile(context.Context, *models.UserProfile) error {
	return assert.AnError
}
func (failingProfiles) AppendWeight(context.Context, string, models.WeightEntry) (*models.UserProfile, error) {
	return nil, assert.AnError
}
func (failingProfiles) SetPlan(context.Context, string, models.PlanType, time.Time) error {
	return assert.AnError
}

func TestChatDetectedLocationReturned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := database.NewMemoryStore()
	spy := &spyCompleter{reply: "ok"}

	handler := &ChatHandler{
		Profiles:      store,
		Chats:         store,
		Gate:          quota.NewGate(store, 3),
		AI:            spy,
		Crisis:        safety.NewDetector(),
		Geo:           &stubResolver{loc: models.DetectedLocation{Country: "Nigeria", City: "Lagos"}},
		HistoryWindow: 8,
	}
	router := gin.New()
	router.POST("/api/chat", handler.Chat)

	body, _ := json.Marshal(models.ChatRequest{Message: "what should I eat"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NotNil(t, resp.DetectedLocation)
	assert.Equal(t, "Nigeria", resp.DetectedLocation.Country)

	// 位置要进入上游的system提示词
	assert.Contains(t, spy.lastSystem, "Lagos, Nigeria")
	assert.Contains(t, spy.lastSystem, "jollof rice")
}

func TestChatSavesRecordForIdentifiedUser(t *testing.T) {
	env := newChatEnv(t)

	w := env.post(t, models.ChatRequest{Message: "hello", UserID: "u1"})
	assert.Equal(t, http.StatusOK, w.Code)

	records, err := env.store.ListRecords(context.Background(), "u1", 10)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "hello", records[0].Message)
	assert.Equal(t, "Eat more vegetables.", records[0].Reply)
}

func TestHealthEndpoint(t *testing.T) {
	env := newChatEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "online", resp["status"])
	assert.Equal(t, true, resp["openaiConfigured"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestHealthUnconfigured(t *testing.T) {
	env := newChatEnv(t)
	env.spy.unconfigured = true

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, false, resp["openaiConfigured"])
}
