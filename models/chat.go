package models

import (
	"time"

	"gorm.io/gorm"
)

// 消息角色
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage 一条对话消息（仅随请求往返，不单独落库）
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Location 客户端上报的位置信息
type Location struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Country   string  `json:"country,omitempty"`
	City      string  `json:"city,omitempty"`
}

// DetectedLocation 服务端最终解析出的位置
type DetectedLocation struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message     string        `json:"message"`
	ChatHistory []ChatMessage `json:"chatHistory"`
	Location    *Location     `json:"location"`
	UserID      string        `json:"userId"`
}

// ChatResponse 聊天成功响应
type ChatResponse struct {
	Response          string            `json:"response"`
	Usage             *Usage            `json:"usage,omitempty"`
	RemainingRequests *int              `json:"remainingRequests,omitempty"`
	DetectedLocation  *DetectedLocation `json:"detectedLocation,omitempty"`
}

// Usage 上游模型的token统计
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatRecord 登录用户的对话存档，每轮成功的问答落一条
type ChatRecord struct {
	gorm.Model
	UserID   string `gorm:"size:36;not null;index" json:"userId"`
	Message  string `gorm:"type:text" json:"message"`
	Reply    string `gorm:"type:text" json:"reply"`
	Country  string `gorm:"size:64" json:"country,omitempty"`
	City     string `gorm:"size:64" json:"city,omitempty"`
	AskedAt  time.Time `json:"askedAt"`
}
