package repository

import (
	"context"
	"errors"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/internal/domain"
	"gorm.io/gorm"
)

// GroupRepository is the read-only group directory
type GroupRepository interface {
	FindAll(ctx context.Context) ([]domain.Group, error)
	FindByID(ctx context.Context, id string) (*domain.Group, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) FindAll(ctx context.Context) ([]domain.Group, error) {
	var groups []domain.Group
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&groups).Error; err != nil {
		return nil, common.NewStoreError("groups.list", err)
	}
	return groups, nil
}

func (r *groupRepository) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	var group domain.Group
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.NewStoreError("groups.find", err)
	}
	return &group, nil
}
