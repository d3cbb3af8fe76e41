package service

import (
	"time"

	"github.com/damoang/angple-bans/internal/domain"
)

// IsActive reports whether ban is active at now. Both interval bounds are inclusive.
func IsActive(ban domain.Ban, now time.Time) bool {
	return ban.ActiveAt(now)
}

// ResolveStatus decides whether member is blocked by any of bans at now.
// A member is blocked by an active direct ban OR an active ban on its current group.
func ResolveStatus(member domain.Member, bans []domain.Ban, now time.Time) domain.MemberStatus {
	status := domain.MemberStatus{MemberID: member.ID}
	for _, b := range bans {
		if !IsActive(b, now) {
			continue
		}
		switch s := b.Scope.(type) {
		case domain.MemberScope:
			status.Blocked = s.MemberID == member.ID
		case domain.GroupScope:
			status.Blocked = member.GroupID != nil && *member.GroupID == s.GroupID
		}
		if status.Blocked {
			break
		}
	}
	return status
}

// ResolveStatusBatch evaluates every member against the same now in one pass
// over bans and one pass over members.
func ResolveStatusBatch(members []domain.Member, bans []domain.Ban, now time.Time) map[string]bool {
	blockedMembers := make(map[string]struct{})
	blockedGroups := make(map[string]struct{})
	for _, b := range bans {
		if !IsActive(b, now) {
			continue
		}
		switch s := b.Scope.(type) {
		case domain.MemberScope:
			blockedMembers[s.MemberID] = struct{}{}
		case domain.GroupScope:
			blockedGroups[s.GroupID] = struct{}{}
		}
	}

	result := make(map[string]bool, len(members))
	for _, m := range members {
		_, direct := blockedMembers[m.ID]
		inherited := false
		if m.GroupID != nil {
			_, inherited = blockedGroups[*m.GroupID]
		}
		result[m.ID] = direct || inherited
	}
	return result
}
