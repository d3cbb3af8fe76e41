package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/repository"
	"github.com/damoang/angple-bans/pkg/cache"
	"github.com/damoang/angple-bans/pkg/logger"
)

// SelectionFilterService answers picker queries: which groups are banned and
// which targets are already directly banned.
type SelectionFilterService interface {
	ListGroupsWithBanFlag(ctx context.Context) ([]domain.GroupBanFlag, error)
	IsGroupBanned(ctx context.Context, groupID string) (bool, error)
	ComputeActiveMemberExclusionSet(ctx context.Context, kind domain.ScopeKind) (map[string]struct{}, error)
}

type selectionFilterService struct {
	banRepo   repository.BanRepository
	groupRepo repository.GroupRepository
	cache     cache.Service
	ttl       time.Duration
	now       func() time.Time
}

// NewSelectionFilterService creates a new SelectionFilterService.
// Results are cached for at most ttl; ttl <= 0 disables caching.
func NewSelectionFilterService(banRepo repository.BanRepository, groupRepo repository.GroupRepository, cacheService cache.Service, ttl time.Duration, opts ...Option) SelectionFilterService {
	o := buildOptions(opts)
	if cacheService == nil {
		cacheService = cache.NewService(nil)
	}
	return &selectionFilterService{
		banRepo:   banRepo,
		groupRepo: groupRepo,
		cache:     cacheService,
		ttl:       ttl,
		now:       o.now,
	}
}

// ListGroupsWithBanFlag returns every group flagged with whether it is banned now
func (s *selectionFilterService) ListGroupsWithBanFlag(ctx context.Context) ([]domain.GroupBanFlag, error) {
	// the generation is read before the store snapshot so that a write
	// committed in between makes this fill unreachable
	gen, cacheable := s.generation(ctx)
	if cacheable {
		var cached []domain.GroupBanFlag
		if err := s.cache.GetGroupFlags(ctx, gen, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logger.GetLogger().Warn().Err(err).Msg("group flag cache read failed")
		}
	}

	now := s.now()
	groups, err := s.groupRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.banRepo.FindActive(ctx, domain.ScopeKindGroup, nil, now)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("find_active").Inc()
		return nil, err
	}

	banned := make(map[string]struct{}, len(active))
	for _, b := range active {
		if IsActive(b, now) {
			banned[b.GroupID()] = struct{}{}
		}
	}

	flags := make([]domain.GroupBanFlag, len(groups))
	for i, g := range groups {
		_, isBanned := banned[g.ID]
		flags[i] = domain.GroupBanFlag{Group: g, IsCurrentlyBanned: isBanned}
	}

	if cacheable {
		if err := s.cache.SetGroupFlags(ctx, gen, flags, s.cacheTTL(active, now)); err != nil {
			logger.GetLogger().Warn().Err(err).Msg("group flag cache write failed")
		}
	}
	return flags, nil
}

// IsGroupBanned is the per-group predicate; it always reads the store
func (s *selectionFilterService) IsGroupBanned(ctx context.Context, groupID string) (bool, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return false, common.NewRequestError(common.ReasonMissingGroupID, "group id is required")
	}
	now := s.now()
	active, err := s.banRepo.FindActive(ctx, domain.ScopeKindGroup, []string{groupID}, now)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("find_active").Inc()
		return false, err
	}
	for _, b := range active {
		if IsActive(b, now) {
			return true, nil
		}
	}
	return false, nil
}

// ComputeActiveMemberExclusionSet returns the targets currently banned directly
// under kind: member ids for member scope, group ids for group scope.
// Group-inherited member restriction is not part of the member set.
func (s *selectionFilterService) ComputeActiveMemberExclusionSet(ctx context.Context, kind domain.ScopeKind) (map[string]struct{}, error) {
	if kind != domain.ScopeKindMember && kind != domain.ScopeKindGroup {
		return nil, common.NewRequestError(common.ReasonInvalidScopeKind, "scope kind must be member or group")
	}

	gen, cacheable := s.generation(ctx)
	if cacheable {
		var cached []string
		if err := s.cache.GetExclusions(ctx, string(kind), gen, &cached); err == nil {
			return toSet(cached), nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logger.GetLogger().Warn().Err(err).Str("scope", string(kind)).Msg("exclusion cache read failed")
		}
	}

	now := s.now()
	active, err := s.banRepo.FindActive(ctx, kind, nil, now)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("find_active").Inc()
		return nil, err
	}

	set := make(map[string]struct{}, len(active))
	for _, b := range active {
		if IsActive(b, now) {
			set[b.Scope.TargetID()] = struct{}{}
		}
	}

	if cacheable {
		if err := s.cache.SetExclusions(ctx, string(kind), gen, SortedIDs(set), s.cacheTTL(active, now)); err != nil {
			logger.GetLogger().Warn().Err(err).Str("scope", string(kind)).Msg("exclusion cache write failed")
		}
	}
	return set, nil
}

// generation returns the cache generation, or false when the cache must be bypassed
func (s *selectionFilterService) generation(ctx context.Context) (int64, bool) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		logger.GetLogger().Warn().Err(err).Msg("ban cache generation unavailable, bypassing cache")
		return 0, false
	}
	return gen, true
}

// cacheTTL bounds the configured TTL by the first upcoming expiry among active
func (s *selectionFilterService) cacheTTL(active []domain.Ban, now time.Time) time.Duration {
	ttl := s.ttl
	for _, b := range active {
		if b.EndAt == nil {
			continue
		}
		if until := b.EndAt.Sub(now); until < ttl {
			ttl = until
		}
	}
	return ttl
}

// SortedIDs returns the members of set in ascending order
func SortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
