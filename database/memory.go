package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Armin247/Aliva/models"
)

// MemoryStore 进程内存储实现，供测试和本地开发使用
// 行为与GormStore保持一致，包括计数器的原子占用语义
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	users    map[string]*models.User
	counters map[string]int // key: userID + "|" + date
	records  []models.ChatRecord
	events   []models.PaymentEvent
	nextID   uint
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*models.UserProfile),
		users:    make(map[string]*models.User),
		counters: make(map[string]int),
	}
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *MemoryStore) UpsertProfile(_ context.Context, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.profiles[profile.UserID]; ok {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		profile.ID = s.nextID
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	copied := *profile
	s.profiles[profile.UserID] = &copied
	return nil
}

func (s *MemoryStore) AppendWeight(ctx context.Context, userID string, entry models.WeightEntry) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	profile.WeightHistory = append(profile.WeightHistory, entry)
	profile.CurrentWeightKg = entry.WeightKg
	profile.UpdatedAt = time.Now()

	copied := *profile
	return &copied, nil
}

func (s *MemoryStore) SetPlan(_ context.Context, userID string, plan models.PlanType, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		s.nextID++
		profile = &models.UserProfile{ID: s.nextID, UserID: userID, CreatedAt: time.Now()}
		s.profiles[userID] = profile
	}
	profile.Plan = plan
	profile.PlanExpiresAt = &expiresAt
	profile.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) UserExists(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, record *models.ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	record.ID = s.nextID
	record.CreatedAt = time.Now()
	s.records = append(s.records, *record)
	return nil
}

func (s *MemoryStore) ListRecords(_ context.Context, userID string, limit int) ([]models.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ChatRecord
	for _, record := range s.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveEvent(_ context.Context, event *models.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *event)
	return nil
}

// Events 已收到的支付事件（测试用）
func (s *MemoryStore) Events() []models.PaymentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PaymentEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemoryStore) Reserve(_ context.Context, userID, date string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "|" + date
	count := s.counters[key]
	if count >= limit {
		return count, false, nil
	}
	count++
	s.counters[key] = count
	return count, true, nil
}

func (s *MemoryStore) Release(_ context.Context, userID, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "|" + date
	if s.counters[key] > 0 {
		s.counters[key]--
	}
	return nil
}

// Count 当前计数（测试用）
func (s *MemoryStore) Count(userID, date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counters[userID+"|"+date]
}
