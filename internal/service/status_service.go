package service

import (
	"context"
	"strings"
	"time"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/repository"
)

// StatusService exposes the per-member "is currently blocked" predicate
type StatusService interface {
	MemberStatus(ctx context.Context, memberID string) (*domain.MemberStatus, error)
	MembersStatus(ctx context.Context, memberIDs []string) ([]domain.MemberStatus, error)
	MembersWithStatus(ctx context.Context, page, pageSize int, keyword string) ([]domain.MemberWithStatus, *common.V2Meta, error)
	StatusBatch(ctx context.Context, members []domain.Member) (map[string]bool, error)
}

type statusService struct {
	banRepo    repository.BanRepository
	memberRepo repository.MemberRepository
	now        func() time.Time
}

// NewStatusService creates a new StatusService
func NewStatusService(banRepo repository.BanRepository, memberRepo repository.MemberRepository, opts ...Option) StatusService {
	o := buildOptions(opts)
	return &statusService{banRepo: banRepo, memberRepo: memberRepo, now: o.now}
}

// MemberStatus resolves one member by id
func (s *statusService) MemberStatus(ctx context.Context, memberID string) (*domain.MemberStatus, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, common.NewRequestError(common.ReasonInvalidID, "member id is required")
	}
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	bans, err := s.banRepo.FindActive(ctx, domain.ScopeKindMember, []string{member.ID}, now)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("find_active").Inc()
		return nil, err
	}
	if member.GroupID != nil && *member.GroupID != "" {
		groupBans, err := s.banRepo.FindActive(ctx, domain.ScopeKindGroup, []string{*member.GroupID}, now)
		if err != nil {
			banStoreFailuresTotal.WithLabelValues("find_active").Inc()
			return nil, err
		}
		bans = append(bans, groupBans...)
	}

	status := ResolveStatus(*member, bans, now)
	return &status, nil
}

// MembersStatus resolves several members in one batch. Unknown ids are omitted.
func (s *statusService) MembersStatus(ctx context.Context, memberIDs []string) ([]domain.MemberStatus, error) {
	ids := normalizeIDs(memberIDs)
	if len(ids) == 0 {
		return nil, common.NewRequestError(common.ReasonEmptyIDs, "at least one member id is required")
	}
	members, err := s.memberRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	blocked, err := s.StatusBatch(ctx, members)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]struct{}, len(members))
	for _, m := range members {
		byID[m.ID] = struct{}{}
	}
	statuses := make([]domain.MemberStatus, 0, len(members))
	for _, id := range ids {
		if _, ok := byID[id]; ok {
			statuses = append(statuses, domain.MemberStatus{MemberID: id, Blocked: blocked[id]})
		}
	}
	return statuses, nil
}

// MembersWithStatus pages the member directory and flags each row
func (s *statusService) MembersWithStatus(ctx context.Context, page, pageSize int, keyword string) ([]domain.MemberWithStatus, *common.V2Meta, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	members, total, err := s.memberRepo.FindAll(ctx, page, pageSize, keyword)
	if err != nil {
		return nil, nil, err
	}

	blocked, err := s.StatusBatch(ctx, members)
	if err != nil {
		return nil, nil, err
	}

	items := make([]domain.MemberWithStatus, len(members))
	for i, m := range members {
		items[i] = domain.MemberWithStatus{
			Member:      m,
			DisplayName: m.DisplayName(),
			Blocked:     blocked[m.ID],
		}
	}
	return items, common.NewV2Meta(page, pageSize, total), nil
}

// StatusBatch fetches active direct bans and active group bans once each,
// then resolves every member against a single now snapshot.
func (s *statusService) StatusBatch(ctx context.Context, members []domain.Member) (map[string]bool, error) {
	if len(members) == 0 {
		return map[string]bool{}, nil
	}
	now := s.now()

	memberIDs := make([]string, 0, len(members))
	groupIDs := make([]string, 0)
	seenGroups := make(map[string]struct{})
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
		if m.GroupID == nil || *m.GroupID == "" {
			continue
		}
		if _, ok := seenGroups[*m.GroupID]; !ok {
			seenGroups[*m.GroupID] = struct{}{}
			groupIDs = append(groupIDs, *m.GroupID)
		}
	}

	direct, err := s.banRepo.FindActive(ctx, domain.ScopeKindMember, memberIDs, now)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("find_active").Inc()
		return nil, err
	}
	inherited, err := s.banRepo.FindActive(ctx, domain.ScopeKindGroup, groupIDs, now)
	if err != nil {
		banStoreFailuresTotal.WithLabelValues("find_active").Inc()
		return nil, err
	}

	bans := make([]domain.Ban, 0, len(direct)+len(inherited))
	bans = append(bans, direct...)
	bans = append(bans, inherited...)
	return ResolveStatusBatch(members, bans, now), nil
}
