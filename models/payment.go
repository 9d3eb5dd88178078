package models

import (
	"time"

	"gorm.io/gorm"
)

// 订阅周期
type PlanInterval string

const (
	IntervalMonthly  PlanInterval = "monthly"
	IntervalAnnually PlanInterval = "annually"
)

// PaymentEvent 支付网关回调的落库记录
type PaymentEvent struct {
	gorm.Model
	Reference string       `gorm:"size:100;not null;index" json:"reference"`
	Event     string       `gorm:"size:50;not null" json:"event"`
	UserID    string       `gorm:"size:36;index" json:"userId"`
	Plan      PlanType     `gorm:"size:20" json:"plan"`
	Interval  PlanInterval `gorm:"size:20" json:"interval"`
	Amount    int64        `json:"amount"`
}

// PaystackWebhook Paystack回调报文
type PaystackWebhook struct {
	Event string              `json:"event"`
	Data  PaystackWebhookData `json:"data"`
}

// PaystackWebhookData 回调数据体
type PaystackWebhookData struct {
	Reference string           `json:"reference"`
	Amount    int64            `json:"amount"`
	Status    string           `json:"status"`
	Metadata  PaystackMetadata `json:"metadata"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// PaystackMetadata 下单时附带的业务元数据
type PaystackMetadata struct {
	UserID   string `json:"userId"`
	Interval string `json:"interval"`
}

// PlanExpiry 根据订阅周期计算套餐到期时间
func PlanExpiry(interval PlanInterval, now time.Time) time.Time {
	if interval == IntervalAnnually {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 1, 0)
}
