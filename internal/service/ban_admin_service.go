package service

import (
	"context"
	"strings"
	"time"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/internal/config"
	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/repository"
	"github.com/damoang/angple-bans/pkg/cache"
	"github.com/damoang/angple-bans/pkg/logger"
	"gorm.io/gorm"
)

// BanAdminService orchestrates administrative ban writes and the listing read
type BanAdminService interface {
	BanMembers(ctx context.Context, memberIDs []string, reason *string, duration domain.DurationSpec, adminID string) (*domain.BanMembersResult, error)
	BanGroup(ctx context.Context, groupID string, reason *string, duration domain.DurationSpec, adminID string) (*domain.Ban, error)
	Unban(ctx context.Context, id string) (int64, error)
	UnbanMany(ctx context.Context, ids []string) (*domain.BulkResult, error)
	DeleteByMember(ctx context.Context, tx *gorm.DB, memberID string) (int64, error)
	DeleteByGroup(ctx context.Context, tx *gorm.DB, groupID string) (int64, error)
	InvalidateCaches(ctx context.Context)
	GetBan(ctx context.Context, id string) (*domain.Ban, error)
	ListBans(ctx context.Context, filter domain.BanListFilter) (*domain.BanPage, error)
}

type banAdminService struct {
	repo  repository.BanRepository
	cache cache.Service
	cfg   config.BansConfig
	now   func() time.Time
}

// NewBanAdminService creates a new BanAdminService
func NewBanAdminService(repo repository.BanRepository, cacheService cache.Service, cfg config.BansConfig, opts ...Option) BanAdminService {
	o := buildOptions(opts)
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 100
	}
	return &banAdminService{repo: repo, cache: cacheService, cfg: cfg, now: o.now}
}

// BanMembers bans every distinct member id with a shared reason and end time.
// Ids are written in chunks of cfg.ChunkSize; each chunk is one transaction and
// is reported on its own. The returned error is the first chunk failure, if any.
func (s *banAdminService) BanMembers(ctx context.Context, memberIDs []string, reason *string, duration domain.DurationSpec, adminID string) (*domain.BanMembersResult, error) {
	ids := normalizeIDs(memberIDs)
	if len(ids) == 0 {
		return nil, common.NewRequestError(common.ReasonMissingMemberIDs, "at least one member id is required")
	}

	now := s.now()
	endAt, err := s.resolveEndAt(duration, now)
	if err != nil {
		return nil, err
	}
	draft := repository.BanDraft{Reason: normalizeReason(reason), EndAt: endAt, CreatedBy: adminID}

	out := &domain.BanMembersResult{
		Bans:   make([]domain.Ban, 0, len(ids)),
		Result: domain.BulkResult{Requested: len(ids), Chunks: make([]domain.ChunkResult, 0)},
	}
	var firstErr error
	for _, chunk := range chunkIDs(ids, s.cfg.ChunkSize) {
		scopes := make([]domain.Scope, len(chunk))
		for i, id := range chunk {
			scopes[i] = domain.MemberScope{MemberID: id}
		}

		bans, err := s.repo.CreateMany(ctx, scopes, draft)
		if err != nil {
			banStoreFailuresTotal.WithLabelValues("create_many").Inc()
			logger.GetLogger().Error().Err(err).
				Int("chunk_size", len(chunk)).
				Str("admin_id", adminID).
				Msg("member ban chunk failed")
			out.Result.Chunks = append(out.Result.Chunks, domain.ChunkResult{IDs: chunk, Error: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		out.Bans = append(out.Bans, bans...)
		out.Result.Affected += int64(len(bans))
		out.Result.Chunks = append(out.Result.Chunks, domain.ChunkResult{IDs: chunk, OK: true, Affected: int64(len(bans))})
	}

	if len(out.Bans) > 0 {
		bansCreatedTotal.WithLabelValues(string(domain.ScopeKindMember)).Add(float64(len(out.Bans)))
		s.invalidate(ctx)
	}
	logger.GetLogger().Info().
		Str("scope", string(domain.ScopeKindMember)).
		Int("requested", len(ids)).
		Int64("created", out.Result.Affected).
		Int("chunks", len(out.Result.Chunks)).
		Str("duration", duration.Name()).
		Str("admin_id", adminID).
		Msg("members banned")

	return out, firstErr
}

// BanGroup creates exactly one group-scoped ban
func (s *banAdminService) BanGroup(ctx context.Context, groupID string, reason *string, duration domain.DurationSpec, adminID string) (*domain.Ban, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, common.NewRequestError(common.ReasonMissingGroupID, "group id is required")
	}

	now := s.now()
	endAt, err := s.resolveEndAt(duration, now)
	if err != nil {
		return nil, err
	}

	ban, err := s.repo.Create(ctx, domain.GroupScope{GroupID: groupID}, repository.BanDraft{
		Reason:    normalizeReason(reason),
		EndAt:     endAt,
		CreatedBy: adminID,
	})
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("create").Inc()
		logger.GetLogger().Error().Err(err).Str("group_id", groupID).Msg("group ban failed")
		return nil, err
	}

	bansCreatedTotal.WithLabelValues(string(domain.ScopeKindGroup)).Inc()
	s.invalidate(ctx)
	logger.GetLogger().Info().
		Str("scope", string(domain.ScopeKindGroup)).
		Str("group_id", groupID).
		Str("ban_id", ban.ID).
		Str("duration", duration.Name()).
		Str("admin_id", adminID).
		Msg("group banned")
	return ban, nil
}

// Unban deletes one ban. A missing id reports 0 affected rows and no error.
func (s *banAdminService) Unban(ctx context.Context, id string) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, common.NewRequestError(common.ReasonInvalidID, "ban id is required")
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("delete").Inc()
		logger.GetLogger().Error().Err(err).Str("ban_id", id).Msg("unban failed")
		return 0, err
	}
	s.afterDelete(ctx, affected)
	logger.GetLogger().Info().Str("ban_id", id).Int64("affected", affected).Msg("ban removed")
	return affected, nil
}

// UnbanMany deletes bans chunk by chunk; re-deleting already deleted ids is a no-op
func (s *banAdminService) UnbanMany(ctx context.Context, ids []string) (*domain.BulkResult, error) {
	ids = normalizeIDs(ids)
	if len(ids) == 0 {
		return nil, common.NewRequestError(common.ReasonEmptyIDs, "at least one ban id is required")
	}

	result := &domain.BulkResult{Requested: len(ids), Chunks: make([]domain.ChunkResult, 0)}
	var firstErr error
	for _, chunk := range chunkIDs(ids, s.cfg.ChunkSize) {
		affected, err := s.repo.DeleteMany(ctx, chunk)
		if err != nil {
			banStoreFailuresTotal.WithLabelValues("delete_many").Inc()
			logger.GetLogger().Error().Err(err).Int("chunk_size", len(chunk)).Msg("unban chunk failed")
			result.Chunks = append(result.Chunks, domain.ChunkResult{IDs: chunk, Error: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Affected += affected
		result.Chunks = append(result.Chunks, domain.ChunkResult{IDs: chunk, OK: true, Affected: affected})
	}

	s.afterDelete(ctx, result.Affected)
	logger.GetLogger().Info().
		Int("requested", len(ids)).
		Int64("affected", result.Affected).
		Int("chunks", len(result.Chunks)).
		Msg("bans removed")
	return result, firstErr
}

// DeleteByMember purges a member's bans, inside tx when the caller supplies one.
// With a tx the caches are left alone; the caller runs InvalidateCaches after commit.
func (s *banAdminService) DeleteByMember(ctx context.Context, tx *gorm.DB, memberID string) (int64, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return 0, common.NewRequestError(common.ReasonInvalidID, "member id is required")
	}
	affected, err := s.repoFor(tx).DeleteByMember(ctx, memberID)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("delete_by_member").Inc()
		return 0, err
	}
	s.afterPurge(ctx, tx, affected)
	return affected, nil
}

// DeleteByGroup purges a group's bans, inside tx when the caller supplies one.
// With a tx the caches are left alone; the caller runs InvalidateCaches after commit.
func (s *banAdminService) DeleteByGroup(ctx context.Context, tx *gorm.DB, groupID string) (int64, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return 0, common.NewRequestError(common.ReasonInvalidID, "group id is required")
	}
	affected, err := s.repoFor(tx).DeleteByGroup(ctx, groupID)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("delete_by_group").Inc()
		return 0, err
	}
	s.afterPurge(ctx, tx, affected)
	return affected, nil
}

// GetBan returns one ban by id
func (s *banAdminService) GetBan(ctx context.Context, id string) (*domain.Ban, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, common.NewRequestError(common.ReasonInvalidID, "ban id is required")
	}
	return s.repo.FindByID(ctx, id)
}

// ListBans returns one page of bans, each flagged active against one now snapshot
func (s *banAdminService) ListBans(ctx context.Context, filter domain.BanListFilter) (*domain.BanPage, error) {
	if filter.PageSize < 1 {
		filter.PageSize = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && filter.PageSize > s.cfg.MaxPageSize {
		filter.PageSize = s.cfg.MaxPageSize
	}
	page, err := s.repo.List(ctx, filter, s.now())
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("list").Inc()
		return nil, err
	}
	return page, nil
}

func (s *banAdminService) resolveEndAt(duration domain.DurationSpec, now time.Time) (*time.Time, error) {
	endAt := duration.EndAt(now)
	if endAt == nil || duration.Kind() != domain.DurationCustom || endAt.After(now) {
		return endAt, nil
	}
	if s.cfg.RejectPastEndAt {
		return nil, common.NewRequestError(common.ReasonInvalidEndAt, "end time must be in the future")
	}
	logger.GetLogger().Warn().Time("end_at", *endAt).Msg("custom end time is not in the future; ban is created already expired")
	return endAt, nil
}

func (s *banAdminService) repoFor(tx *gorm.DB) repository.BanRepository {
	if tx == nil {
		return s.repo
	}
	return s.repo.WithTx(tx)
}

func (s *banAdminService) afterDelete(ctx context.Context, affected int64) {
	if affected <= 0 {
		return
	}
	bansDeletedTotal.Add(float64(affected))
	s.invalidate(ctx)
}

// afterPurge counts a deleteBy* purge; invalidation waits for the caller's commit when tx is set
func (s *banAdminService) afterPurge(ctx context.Context, tx *gorm.DB, affected int64) {
	if tx == nil {
		s.afterDelete(ctx, affected)
		return
	}
	if affected > 0 {
		bansDeletedTotal.Add(float64(affected))
	}
}

// InvalidateCaches drops every cached ban-derived view. Callers that purge
// inside their own transaction run it once the transaction has committed.
func (s *banAdminService) InvalidateCaches(ctx context.Context) {
	s.invalidate(ctx)
}

// invalidate drops every cached ban-derived view; a failure is logged, not returned
func (s *banAdminService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBans(ctx); err != nil {
		logger.GetLogger().Warn().Err(err).Msg("ban cache invalidation failed")
	}
}

// normalizeIDs trims, drops empties and deduplicates while keeping first-seen order
func normalizeIDs(ids []string) []string {
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

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func chunkIDs(ids []string, size int) [][]string {
	if size < 1 {
		size = len(ids)
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
