package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/internal/domain"
	"gorm.io/gorm"
)

// MemberRepository is the read-only member directory
type MemberRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Member, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Member, error)
	FindAll(ctx context.Context, page, limit int, keyword string) ([]domain.Member, int64, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByID(ctx context.Context, id string) (*domain.Member, error) {
	var member domain.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.NewStoreError("members.find", err)
	}
	return &member, nil
}

func (r *memberRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Member, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []domain.Member{}, nil
	}
	var members []domain.Member
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, common.NewStoreError("members.find_many", err)
	}
	return members, nil
}

// FindAll pages through members ordered by last then first name
func (r *memberRepository) FindAll(ctx context.Context, page, limit int, keyword string) ([]domain.Member, int64, error) {
	page, limit = NormalizePage(page, limit)

	var members []domain.Member
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Member{})
	if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
		like := "%" + escapeLike(keyword) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'",
			like, like, like,
		)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, common.NewStoreError("members.count", err)
	}
	offset := (page - 1) * limit
	if err := query.Order("last_name ASC").Order("first_name ASC").Order("id ASC").
		Offset(offset).Limit(limit).Find(&members).Error; err != nil {
		return nil, 0, common.NewStoreError("members.list", err)
	}
	return members, total, nil
}
