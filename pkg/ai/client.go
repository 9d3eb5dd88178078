package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Armin247/Aliva/configs"
	"github.com/Armin247/Aliva/models"
)

// 上游错误分类，处理层按类别映射状态码和兜底话术
var (
	ErrNotConfigured = errors.New("ai: api key not configured")
	ErrAuth          = errors.New("ai: upstream authentication failed")
	ErrQuota         = errors.New("ai: upstream quota exceeded")
	ErrRateLimited   = errors.New("ai: upstream rate limited")
	ErrTransient     = errors.New("ai: upstream temporarily unavailable")
)

// 瞬时故障重试一次之前的等待时间
const retryBackoff = 500 * time.Millisecond

// 请求结构体
type chatCompletionRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Temperature      float64       `json:"temperature,omitempty"`
	PresencePenalty  float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64       `json:"frequency_penalty,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// 响应结构体
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *models.Usage `json:"usage"`
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Client OpenAI兼容的chat-completion客户端
type Client struct {
	apiKey           string
	baseURL          string
	model            string
	maxTokens        int
	temperature      float64
	presencePenalty  float64
	frequencyPenalty float64
	httpClient       *http.Client
}

// NewClient 按配置创建上游客户端
func NewClient(cfg *configs.Config) *Client {
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:           cfg.AI.APIKey,
		baseURL:          cfg.AI.BaseURL,
		model:            cfg.AI.Model,
		maxTokens:        cfg.AI.MaxTokens,
		temperature:      cfg.AI.Temperature,
		presencePenalty:  cfg.AI.PresencePenalty,
		frequencyPenalty: cfg.AI.FrequencyPenalty,
		httpClient:       &http.Client{Timeout: timeout},
	}
}

// Configured 是否已配置API密钥
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete 发起一次对话补全
// history 已由调用方裁剪到最近N条；瞬时故障内部重试一次
func (c *Client) Complete(ctx context.Context, systemPrompt string, history []models.ChatMessage, userMessage string) (string, *models.Usage, error) {
	if !c.Configured() {
		return "", nil, ErrNotConfigured
	}

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, msg := range history {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userMessage})

	reply, usage, err := c.doRequest(ctx, messages)
	if errors.Is(err, ErrTransient) {
		select {
		case <-ctx.Done():
			return "", nil, ErrTransient
		case <-time.After(retryBackoff):
		}
		reply, usage, err = c.doRequest(ctx, messages)
	}
	return reply, usage, err
}

func (c *Client) doRequest(ctx context.Context, messages []chatMessage) (string, *models.Usage, error) {
	requestBody := chatCompletionRequest{
		Model:            c.model,
		Messages:         messages,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		PresencePenalty:  c.presencePenalty,
		FrequencyPenalty: c.frequencyPenalty,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 网络错误和超时统一按瞬时故障处理
		return "", nil, ErrTransient
	}
	defer resp.Body.Close()

	var response chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", nil, ErrTransient
	}

	if resp.StatusCode != http.StatusOK {
		return "", nil, classifyError(resp.StatusCode, response.Error.Code)
	}

	if len(response.Choices) == 0 {
		return "", nil, ErrTransient
	}

	return response.Choices[0].Message.Content, response.Usage, nil
}

// classifyError 把上游状态码/错误码归入错误分类
// 供应商的原始错误文本绝不向客户端透传
func classifyError(status int, code string) error {
	switch code {
	case "invalid_api_key":
		return ErrAuth
	case "insufficient_quota":
		return ErrQuota
	case "rate_limit_exceeded":
		return ErrRateLimited
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusPaymentRequired:
		return ErrQuota
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrTransient
	}
}
