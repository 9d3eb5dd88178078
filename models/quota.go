package models

import (
	"time"
)

// DailyRequestCounter 免费用户的按天请求计数
// 以 (user_id, date) 为键，日期使用UTC日历日，跨天自然从0开始
type DailyRequestCounter struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_counter_user_date" json:"userId"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_counter_user_date" json:"date"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CounterDate 计数器的日期键，固定取UTC日历日
func CounterDate(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}
