package service

import (
	"context"
	"time"

	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/repository"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockBanRepository is a mock implementation of repository.BanRepository
type MockBanRepository struct {
	mock.Mock
}

func (m *MockBanRepository) Create(ctx context.Context, scope domain.Scope, draft repository.BanDraft) (*domain.Ban, error) {
	args := m.Called(ctx, scope, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ban), args.Error(1)
}

func (m *MockBanRepository) CreateMany(ctx context.Context, scopes []domain.Scope, draft repository.BanDraft) ([]domain.Ban, error) {
	args := m.Called(ctx, scopes, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ban), args.Error(1)
}

func (m *MockBanRepository) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBanRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBanRepository) DeleteByMember(ctx context.Context, memberID string) (int64, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBanRepository) DeleteByGroup(ctx context.Context, groupID string) (int64, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBanRepository) FindByID(ctx context.Context, id string) (*domain.Ban, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ban), args.Error(1)
}

func (m *MockBanRepository) FindActive(ctx context.Context, kind domain.ScopeKind, targetIDs []string, now time.Time) ([]domain.Ban, error) {
	args := m.Called(ctx, kind, targetIDs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ban), args.Error(1)
}

func (m *MockBanRepository) List(ctx context.Context, filter domain.BanListFilter, now time.Time) (*domain.BanPage, error) {
	args := m.Called(ctx, filter, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BanPage), args.Error(1)
}

func (m *MockBanRepository) WithTx(tx *gorm.DB) repository.BanRepository {
	return m
}

// MockGroupRepository is a mock implementation of repository.GroupRepository
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) FindAll(ctx context.Context) ([]domain.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Group), args.Error(1)
}

func (m *MockGroupRepository) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

// MockCache records invalidations and serves nothing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockCache) Generation(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) GetGroupFlags(ctx context.Context, gen int64, dest interface{}) error {
	return m.Called(ctx, gen, dest).Error(0)
}

func (m *MockCache) SetGroupFlags(ctx context.Context, gen int64, data interface{}, ttl time.Duration) error {
	return m.Called(ctx, gen, data, ttl).Error(0)
}

func (m *MockCache) GetExclusions(ctx context.Context, kind string, gen int64, dest interface{}) error {
	return m.Called(ctx, kind, gen, dest).Error(0)
}

func (m *MockCache) SetExclusions(ctx context.Context, kind string, gen int64, data interface{}, ttl time.Duration) error {
	return m.Called(ctx, kind, gen, data, ttl).Error(0)
}

func (m *MockCache) InvalidateBans(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCache) IsAvailable() bool { return true }

func (m *MockCache) Ping(ctx context.Context) error { return nil }
