package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	banTable = "bans"

	// DefaultPageSize is used when a listing asks for no page size
	DefaultPageSize = 20
	// MaxPageSize caps every listing page
	MaxPageSize = 200

	insertBatchSize = 100
)

// BanRecord is the persistence row. The nullable member_id/group_id pair is
// private to this package; callers only ever see domain.Scope.
type BanRecord struct {
	ID        string     `gorm:"column:id;primaryKey;size:36"`
	MemberID  *string    `gorm:"column:member_id;size:64;index:idx_bans_member_id"`
	GroupID   *string    `gorm:"column:group_id;size:64;index:idx_bans_group_id"`
	Reason    *string    `gorm:"column:reason;type:text"`
	StartAt   time.Time  `gorm:"column:start_at;not null;precision:6;index:idx_bans_start_at"`
	EndAt     *time.Time `gorm:"column:end_at;precision:6"`
	CreatedBy string     `gorm:"column:created_by;size:64"`
}

// TableName returns the table name for BanRecord
func (BanRecord) TableName() string { return banTable }

// BanDraft holds the attributes shared by every ban of one create call
type BanDraft struct {
	Reason    *string
	EndAt     *time.Time
	CreatedBy string
}

// BanRepository is the BanStore: persistence and query surface for bans
type BanRepository interface {
	Create(ctx context.Context, scope domain.Scope, draft BanDraft) (*domain.Ban, error)
	CreateMany(ctx context.Context, scopes []domain.Scope, draft BanDraft) ([]domain.Ban, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	DeleteByMember(ctx context.Context, memberID string) (int64, error)
	DeleteByGroup(ctx context.Context, groupID string) (int64, error)
	FindByID(ctx context.Context, id string) (*domain.Ban, error)
	FindActive(ctx context.Context, kind domain.ScopeKind, targetIDs []string, now time.Time) ([]domain.Ban, error)
	List(ctx context.Context, filter domain.BanListFilter, now time.Time) (*domain.BanPage, error)
	WithTx(tx *gorm.DB) BanRepository
}

type banRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBanRepository creates a new BanRepository
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db, now: time.Now}
}

// NewBanRepositoryWithClock creates a BanRepository whose start_at comes from now
func NewBanRepositoryWithClock(db *gorm.DB, now func() time.Time) BanRepository {
	return &banRepository{db: db, now: now}
}

// WithTx returns a new BanRepository bound to the given transaction
func (r *banRepository) WithTx(tx *gorm.DB) BanRepository {
	return &banRepository{db: tx, now: r.now}
}

// normalizeTime stores instants in UTC at microsecond precision
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (r *banRepository) newRecord(scope domain.Scope, draft BanDraft, startAt time.Time) BanRecord {
	rec := BanRecord{
		ID:        uuid.New().String(),
		Reason:    draft.Reason,
		StartAt:   startAt,
		CreatedBy: draft.CreatedBy,
	}
	if draft.EndAt != nil {
		end := normalizeTime(*draft.EndAt)
		rec.EndAt = &end
	}
	target := scope.TargetID()
	switch scope.Kind() {
	case domain.ScopeKindMember:
		rec.MemberID = &target
	case domain.ScopeKindGroup:
		rec.GroupID = &target
	}
	return rec
}

func (rec BanRecord) toDomain() (domain.Ban, error) {
	scope, err := domain.ScopeFromColumns(rec.MemberID, rec.GroupID)
	if err != nil {
		return domain.Ban{}, err
	}
	ban := domain.Ban{
		ID:        rec.ID,
		Scope:     scope,
		Reason:    rec.Reason,
		StartAt:   rec.StartAt.UTC(),
		CreatedBy: rec.CreatedBy,
	}
	if rec.EndAt != nil {
		end := rec.EndAt.UTC()
		ban.EndAt = &end
	}
	return ban, nil
}

// Create inserts one ban; start_at is set to the current time
func (r *banRepository) Create(ctx context.Context, scope domain.Scope, draft BanDraft) (*domain.Ban, error) {
	if err := domain.ValidateScope(scope); err != nil {
		return nil, err
	}
	rec := r.newRecord(scope, draft, normalizeTime(r.now()))
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, common.NewStoreError("bans.create", err)
	}
	ban, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

// CreateMany inserts one ban per distinct scope in a single transaction
func (r *banRepository) CreateMany(ctx context.Context, scopes []domain.Scope, draft BanDraft) ([]domain.Ban, error) {
	distinct := make([]domain.Scope, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if err := domain.ValidateScope(s); err != nil {
			return nil, err
		}
		key := string(s.Kind()) + ":" + s.TargetID()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, s)
	}
	if len(distinct) == 0 {
		return []domain.Ban{}, nil
	}

	startAt := normalizeTime(r.now())
	records := make([]BanRecord, len(distinct))
	for i, s := range distinct {
		records[i] = r.newRecord(s, draft, startAt)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&records, insertBatchSize).Error
	})
	if err != nil {
		return nil, common.NewStoreError("bans.create_many", err)
	}

	bans := make([]domain.Ban, len(records))
	for i, rec := range records {
		ban, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		bans[i] = ban
	}
	return bans, nil
}

// Delete removes a ban. A missing id is a no-op, not an error.
func (r *banRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BanRecord{})
	if result.Error != nil {
		return 0, common.NewStoreError("bans.delete", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteMany removes every listed ban in one statement; missing ids are ignored
func (r *banRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id IN ?", ids).Delete(&BanRecord{})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, common.NewStoreError("bans.delete_many", err)
	}
	return affected, nil
}

// DeleteByMember purges every ban scoped to the member
func (r *banRepository) DeleteByMember(ctx context.Context, memberID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("member_id = ?", memberID).Delete(&BanRecord{})
	if result.Error != nil {
		return 0, common.NewStoreError("bans.delete_by_member", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByGroup purges every ban scoped to the group
func (r *banRepository) DeleteByGroup(ctx context.Context, groupID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&BanRecord{})
	if result.Error != nil {
		return 0, common.NewStoreError("bans.delete_by_group", result.Error)
	}
	return result.RowsAffected, nil
}

// FindByID retrieves a ban by id
func (r *banRepository) FindByID(ctx context.Context, id string) (*domain.Ban, error) {
	var rec BanRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.NewStoreError("bans.find", err)
	}
	ban, err := rec.toDomain()
	if err != nil {
		// a bad stored row is a server fault, not caller input
		return nil, common.NewStoreError("bans.find", fmt.Errorf("%w: ban %s", common.ErrCorruptRecord, rec.ID))
	}
	return &ban, nil
}

// FindActive returns the bans of one scope kind active at now, in one query.
// A nil targetIDs means every target; an empty non-nil slice matches nothing.
func (r *banRepository) FindActive(ctx context.Context, kind domain.ScopeKind, targetIDs []string, now time.Time) ([]domain.Ban, error) {
	if targetIDs != nil && len(targetIDs) == 0 {
		return []domain.Ban{}, nil
	}

	query := r.db.WithContext(ctx).Model(&BanRecord{}).Scopes(activeAt(now), scopeKindIs(kind))
	if targetIDs != nil {
		switch kind {
		case domain.ScopeKindMember:
			query = query.Where("bans.member_id IN ?", dedupe(targetIDs))
		case domain.ScopeKindGroup:
			query = query.Where("bans.group_id IN ?", dedupe(targetIDs))
		}
	}

	var records []BanRecord
	if err := query.Order("bans.start_at DESC").Find(&records).Error; err != nil {
		return nil, common.NewStoreError("bans.find_active", err)
	}

	bans := make([]domain.Ban, 0, len(records))
	for _, rec := range records {
		ban, err := rec.toDomain()
		if err != nil {
			logger.GetLogger().Warn().Str("ban_id", rec.ID).Msg("skipping ban row with invalid scope")
			continue
		}
		bans = append(bans, ban)
	}
	return bans, nil
}

// banListRow is one joined listing row
type banListRow struct {
	BanRecord
	MemberFirstName *string `gorm:"column:member_first_name"`
	MemberLastName  *string `gorm:"column:member_last_name"`
	MemberEmail     *string `gorm:"column:member_email"`
	GroupName       *string `gorm:"column:group_name"`
}

// List returns one page of bans matching filter, newest first.
// The predicate list is built once and applied to both the count and the page query.
func (r *banRepository) List(ctx context.Context, filter domain.BanListFilter, now time.Time) (*domain.BanPage, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)
	predicates := r.listPredicates(filter)

	var total int64
	if err := r.listBase(ctx).Scopes(predicates...).Count(&total).Error; err != nil {
		return nil, common.NewStoreError("bans.count", err)
	}

	var rows []banListRow
	err := r.listBase(ctx).Scopes(predicates...).
		Select("bans.*, members.first_name AS member_first_name, members.last_name AS member_last_name, " +
			"members.email AS member_email, member_groups.name AS group_name").
		Order("bans.start_at DESC").
		Order("bans.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, common.NewStoreError("bans.list", err)
	}

	items := make([]domain.BanView, 0, len(rows))
	for _, row := range rows {
		ban, err := row.BanRecord.toDomain()
		if err != nil {
			logger.GetLogger().Warn().Str("ban_id", row.ID).Msg("skipping ban row with invalid scope")
			continue
		}
		view := domain.BanView{
			Ban:         ban,
			Active:      ban.ActiveAt(now),
			MemberEmail: deref(row.MemberEmail),
			GroupName:   deref(row.GroupName),
		}
		if row.MemberFirstName != nil || row.MemberLastName != nil {
			view.MemberName = domain.Member{FirstName: deref(row.MemberFirstName), LastName: deref(row.MemberLastName)}.DisplayName()
		}
		items = append(items, view)
	}

	return &domain.BanPage{
		Items:     items,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
		PageCount: common.PageCount(total, pageSize),
	}, nil
}

func (r *banRepository) listBase(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table(banTable).
		Joins("LEFT JOIN members ON members.id = bans.member_id").
		Joins("LEFT JOIN member_groups ON member_groups.id = bans.group_id")
}

// listPredicates turns each populated filter field into one independent predicate
func (r *banRepository) listPredicates(filter domain.BanListFilter) []func(*gorm.DB) *gorm.DB {
	predicates := []func(*gorm.DB) *gorm.DB{scopeKindIs(filter.ScopeKind)}

	if groupID := strings.TrimSpace(filter.ExactGroupID); groupID != "" {
		predicates = append(predicates, func(db *gorm.DB) *gorm.DB {
			return db.Where("bans.group_id = ?", groupID)
		})
	}

	if domainPart := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(filter.EmailDomain)), "@"); domainPart != "" {
		pattern := "%@" + escapeLike(domainPart)
		predicates = append(predicates, func(db *gorm.DB) *gorm.DB {
			return db.Where("bans.member_id IS NOT NULL AND LOWER(members.email) LIKE ? ESCAPE '!'", pattern)
		})
	}

	if text := strings.ToLower(strings.TrimSpace(filter.FreeText)); text != "" {
		pattern := "%" + escapeLike(text) + "%"
		nameExpr := r.fullNameExpr()
		predicates = append(predicates, func(db *gorm.DB) *gorm.DB {
			return db.Where(
				"LOWER("+nameExpr+") LIKE @p ESCAPE '!' OR LOWER(members.email) LIKE @p ESCAPE '!' "+
					"OR LOWER(member_groups.name) LIKE @p ESCAPE '!' OR LOWER(bans.reason) LIKE @p ESCAPE '!'",
				map[string]interface{}{"p": pattern},
			)
		})
	}

	return predicates
}

// fullNameExpr composes the member display name in the dialect's concatenation syntax
func (r *banRepository) fullNameExpr() string {
	if r.db.Dialector != nil && r.db.Dialector.Name() == "sqlite" {
		return "COALESCE(members.first_name, '') || ' ' || COALESCE(members.last_name, '')"
	}
	return "CONCAT_WS(' ', members.first_name, members.last_name)"
}

// activeAt keeps bans whose closed interval [start_at, end_at] contains now
func activeAt(now time.Time) func(*gorm.DB) *gorm.DB {
	at := normalizeTime(now)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("bans.start_at <= ? AND (bans.end_at IS NULL OR bans.end_at >= ?)", at, at)
	}
}

// scopeKindIs keeps bans whose populated scope column matches kind
func scopeKindIs(kind domain.ScopeKind) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch kind {
		case domain.ScopeKindMember:
			return db.Where("bans.member_id IS NOT NULL AND bans.member_id <> ''")
		case domain.ScopeKindGroup:
			return db.Where("bans.group_id IS NOT NULL AND bans.group_id <> ''")
		}
		return db
	}
}

// NormalizePage clamps page to >= 1 and pageSize to [1, MaxPageSize]
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
