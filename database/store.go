package database

import (
	"context"
	"errors"
	"time"

	"github.com/Armin247/Aliva/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("database: record not found")

// ProfileStore 用户档案存储
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error
	AppendWeight(ctx context.Context, userID string, entry models.WeightEntry) (*models.UserProfile, error)
	SetPlan(ctx context.Context, userID string, plan models.PlanType, expiresAt time.Time) error
}

// UserStore 用户账号存储
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	SaveUser(ctx context.Context, user *models.User) error
}

// ChatStore 对话存档存储
type ChatStore interface {
	SaveRecord(ctx context.Context, record *models.ChatRecord) error
	ListRecords(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error)
}

// PaymentStore 支付回调事件存储
type PaymentStore interface {
	SaveEvent(ctx context.Context, event *models.PaymentEvent) error
}

// Store 聚合所有存储接口，计数器部分实现 quota.CounterStore
type Store interface {
	ProfileStore
	UserStore
	ChatStore
	PaymentStore

	Reserve(ctx context.Context, userID, date string, limit int) (int, bool, error)
	Release(ctx context.Context, userID, date string) error
}
