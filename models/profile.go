package models

import (
	"time"

	"gorm.io/gorm"
)

// 套餐类型
type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanPremium PlanType = "premium"
)

// WeightEntry 体重记录条目
type WeightEntry struct {
	Date     time.Time `json:"date"`
	WeightKg float64   `json:"weightKg"`
}

// UserProfile 用户健康档案
// 按 profiles/{userId} 的文档形式存储，档案只做软删除
type UserProfile struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	UserID string `gorm:"size:36;not null;uniqueIndex" json:"userId"`

	FullName string `gorm:"size:100" json:"fullName,omitempty"`
	Age      int    `json:"age,omitempty"`
	Gender   string `gorm:"size:20" json:"gender,omitempty"`
	HeightCm float64 `json:"heightCm,omitempty"`

	CurrentWeightKg float64       `json:"currentWeightKg,omitempty"`
	TargetWeightKg  float64       `json:"targetWeightKg,omitempty"`
	WeightHistory   []WeightEntry `gorm:"serializer:json" json:"weightHistory,omitempty"`

	ActivityLevel      string   `gorm:"size:30" json:"activityLevel,omitempty"`
	HealthGoals        []string `gorm:"serializer:json" json:"healthGoals,omitempty"`
	DietaryPreferences []string `gorm:"serializer:json" json:"dietaryPreferences,omitempty"`

	// 安全关键字段：推荐内容绝不能与过敏原冲突
	Allergies         []string `gorm:"serializer:json" json:"allergies,omitempty"`
	MedicalConditions []string `gorm:"serializer:json" json:"medicalConditions,omitempty"`

	SmokingStatus    string `gorm:"size:30" json:"smokingStatus,omitempty"`
	AlcoholFrequency string `gorm:"size:30" json:"alcoholFrequency,omitempty"`

	PreferredCalorieTarget int `json:"preferredCalorieTarget,omitempty"`

	// 套餐/权益字段
	Plan          PlanType   `gorm:"size:20;default:'free'" json:"plan"`
	PlanExpiresAt *time.Time `json:"planExpiresAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProfileRequest 档案保存请求
type ProfileRequest struct {
	FullName               string        `json:"fullName"`
	Age                    int           `json:"age"`
	Gender                 string        `json:"gender"`
	HeightCm               float64       `json:"heightCm"`
	CurrentWeightKg        float64       `json:"currentWeightKg"`
	TargetWeightKg         float64       `json:"targetWeightKg"`
	ActivityLevel          string        `json:"activityLevel"`
	HealthGoals            []string      `json:"healthGoals"`
	DietaryPreferences     []string      `json:"dietaryPreferences"`
	Allergies              []string      `json:"allergies"`
	MedicalConditions      []string      `json:"medicalConditions"`
	SmokingStatus          string        `json:"smokingStatus"`
	AlcoholFrequency       string        `json:"alcoholFrequency"`
	PreferredCalorieTarget int           `json:"preferredCalorieTarget"`
	WeightHistory          []WeightEntry `json:"weightHistory"`
}

// WeightLogRequest 追加体重记录请求
type WeightLogRequest struct {
	WeightKg float64    `json:"weightKg" binding:"required,gt=0"`
	Date     *time.Time `json:"date"`
}

// Apply 将请求内容写入档案
func (r *ProfileRequest) Apply(p *UserProfile) {
	p.FullName = r.FullName
	p.Age = r.Age
	p.Gender = r.Gender
	p.HeightCm = r.HeightCm
	p.CurrentWeightKg = r.CurrentWeightKg
	p.TargetWeightKg = r.TargetWeightKg
	p.ActivityLevel = r.ActivityLevel
	p.HealthGoals = r.HealthGoals
	p.DietaryPreferences = r.DietaryPreferences
	p.Allergies = r.Allergies
	p.MedicalConditions = r.MedicalConditions
	p.SmokingStatus = r.SmokingStatus
	p.AlcoholFrequency = r.AlcoholFrequency
	p.PreferredCalorieTarget = r.PreferredCalorieTarget
	p.WeightHistory = r.WeightHistory
}
