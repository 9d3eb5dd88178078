package quota

import (
	"context"
	"time"

	"github.com/Armin247/Aliva/models"
)

// CounterStore 按天计数器的存储接口
// Reserve 必须是原子的条件自增：count < limit 时加一并返回新值，
// 否则不修改并返回 allowed=false，两个并发请求不能同时拿到最后一个名额
type CounterStore interface {
	Reserve(ctx context.Context, userID, date string, limit int) (count int, allowed bool, err error)
	Release(ctx context.Context, userID, date string) error
}

// Decision 闸门判定结果，Blocked是正常业务结果而不是错误
type Decision struct {
	Unmetered bool
	Allowed   bool
	Remaining int
}

// Gate 权益闸门：付费放行不计数，免费按天限额
type Gate struct {
	counters CounterStore
	limit    int
}

func NewGate(counters CounterStore, dailyLimit int) *Gate {
	return &Gate{counters: counters, limit: dailyLimit}
}

// IsActivePaid 判定是否处于有效付费状态
// 付费 = 套餐不是free 且（未设置到期时间 或 到期时间在now之后）
func IsActivePaid(plan models.PlanType, expiresAt *time.Time, now time.Time) bool {
	if plan == "" || plan == models.PlanFree {
		return false
	}
	return expiresAt == nil || expiresAt.After(now)
}

// Allow 判定一次请求能否放行
// 免费用户放行时已占用一个当日名额，上游调用失败应调用Refund退还
func (g *Gate) Allow(ctx context.Context, userID string, profile *models.UserProfile, now time.Time) (Decision, error) {
	if profile != nil && IsActivePaid(profile.Plan, profile.PlanExpiresAt, now) {
		return Decision{Unmetered: true, Allowed: true}, nil
	}

	count, allowed, err := g.counters.Reserve(ctx, userID, models.CounterDate(now), g.limit)
	if err != nil {
		return Decision{}, err
	}
	if !allowed {
		return Decision{Allowed: false, Remaining: 0}, nil
	}

	remaining := g.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

// Refund 退还一个已占用的名额（仅在成功送达才计费的策略下使用）
func (g *Gate) Refund(ctx context.Context, userID string, now time.Time) error {
	return g.counters.Release(ctx, userID, models.CounterDate(now))
}

// Limit 当前的免费日限额
func (g *Gate) Limit() int {
	return g.limit
}
