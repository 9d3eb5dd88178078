package database

import (
	"context"
	"errors"
	"time"

	"github.com/Armin247/Aliva/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于gorm的存储实现
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetProfile 按用户ID读取档案
func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile 保存档案，不存在时创建
func (s *GormStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	var existing models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", profile.UserID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.db.WithContext(ctx).Create(profile).Error
		}
		return err
	}

	profile.ID = existing.ID
	profile.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(profile).Error
}

// AppendWeight 追加一条体重记录并同步当前体重
func (s *GormStore) AppendWeight(ctx context.Context, userID string, entry models.WeightEntry) (*models.UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.WeightHistory = append(profile.WeightHistory, entry)
	profile.CurrentWeightKg = entry.WeightKg
	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// SetPlan 更新套餐和到期时间，档案不存在时创建
func (s *GormStore) SetPlan(ctx context.Context, userID string, plan models.PlanType, expiresAt time.Time) error {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		profile = &models.UserProfile{UserID: userID}
	}

	profile.Plan = plan
	profile.PlanExpiresAt = &expiresAt
	return s.UpsertProfile(ctx, profile)
}

// CreateUser 创建用户
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// GetUserByEmail 按邮箱查用户
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID 按ID查用户
func (s *GormStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UserExists 用户名或邮箱是否已被占用
func (s *GormStore) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).Count(&count).Error
	return count > 0, err
}

// SaveUser 保存用户
func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// SaveRecord 落一条对话存档
func (s *GormStore) SaveRecord(ctx context.Context, record *models.ChatRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

// ListRecords 按时间倒序取最近的对话存档
func (s *GormStore) ListRecords(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error) {
	var records []models.ChatRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// SaveEvent 落一条支付回调事件
func (s *GormStore) SaveEvent(ctx context.Context, event *models.PaymentEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

// Reserve 原子占用一个当日名额
// 先确保当天的计数行存在，再用条件UPDATE自增，
// 两个并发请求不可能同时通过 count < limit 的检查
func (s *GormStore) Reserve(ctx context.Context, userID, date string, limit int) (int, bool, error) {
	counter := models.DailyRequestCounter{UserID: userID, Date: date}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&counter).Error
	if err != nil {
		return 0, false, err
	}

	res := s.db.WithContext(ctx).Model(&models.DailyRequestCounter{}).
		Where("user_id = ? AND date = ? AND count < ?", userID, date, limit).
		Update("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return limit, false, nil
	}

	var current models.DailyRequestCounter
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&current).Error; err != nil {
		return 0, false, err
	}
	return current.Count, true, nil
}

// Release 退还一个名额，计数不会减到0以下
func (s *GormStore) Release(ctx context.Context, userID, date string) error {
	return s.db.WithContext(ctx).Model(&models.DailyRequestCounter{}).
		Where("user_id = ? AND date = ? AND count > 0", userID, date).
		Update("count", gorm.Expr("count - 1")).Error
}
