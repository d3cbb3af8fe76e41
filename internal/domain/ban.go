package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/damoang/angple-bans/internal/common"
)

// ScopeKind selects which restriction scope a ban (or a listing) targets
type ScopeKind string

const (
	ScopeKindMember ScopeKind = "member"
	ScopeKindGroup  ScopeKind = "group"
	ScopeKindAll    ScopeKind = "all"
)

// ParseScopeKind parses a scope kind; empty means all
func ParseScopeKind(raw string) (ScopeKind, error) {
	switch ScopeKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScopeKindAll:
		return ScopeKindAll, nil
	case ScopeKindMember:
		return ScopeKindMember, nil
	case ScopeKindGroup:
		return ScopeKindGroup, nil
	}
	return "", common.NewRequestError(common.ReasonInvalidScopeKind, "scope_kind must be member, group or all")
}

// Scope is the target of a ban. The only implementations are MemberScope and
// GroupScope, so a ban always references exactly one member or one group.
type Scope interface {
	Kind() ScopeKind
	TargetID() string
	isScope()
}

// MemberScope restricts a single member
type MemberScope struct {
	MemberID string
}

func (MemberScope) Kind() ScopeKind    { return ScopeKindMember }
func (s MemberScope) TargetID() string { return s.MemberID }
func (MemberScope) isScope()           {}

// GroupScope restricts every current member of a group
type GroupScope struct {
	GroupID string
}

func (GroupScope) Kind() ScopeKind    { return ScopeKindGroup }
func (s GroupScope) TargetID() string { return s.GroupID }
func (GroupScope) isScope()           {}

// ValidateScope rejects a missing scope or one with an empty target id
func ValidateScope(s Scope) error {
	if s == nil || strings.TrimSpace(s.TargetID()) == "" {
		return common.NewRequestError(common.ReasonInvalidScope, "ban scope must reference exactly one member or group")
	}
	return nil
}

// ScopeFromColumns builds a Scope from the nullable persistence pair.
// Both or neither populated is InvalidScope.
func ScopeFromColumns(memberID, groupID *string) (Scope, error) {
	hasMember := memberID != nil && *memberID != ""
	hasGroup := groupID != nil && *groupID != ""
	switch {
	case hasMember && !hasGroup:
		return MemberScope{MemberID: *memberID}, nil
	case hasGroup && !hasMember:
		return GroupScope{GroupID: *groupID}, nil
	}
	return nil, common.NewRequestError(common.ReasonInvalidScope, "ban scope must reference exactly one member or group")
}

// Ban is a single restriction record. It is immutable once created.
type Ban struct {
	ID        string
	Scope     Scope
	Reason    *string
	StartAt   time.Time
	EndAt     *time.Time // nil = indefinite
	CreatedBy string
}

// MemberID returns the banned member id, or "" for a group ban
func (b Ban) MemberID() string {
	if s, ok := b.Scope.(MemberScope); ok {
		return s.MemberID
	}
	return ""
}

// GroupID returns the banned group id, or "" for a member ban
func (b Ban) GroupID() string {
	if s, ok := b.Scope.(GroupScope); ok {
		return s.GroupID
	}
	return ""
}

// IsIndefinite reports whether the ban never expires
func (b Ban) IsIndefinite() bool {
	return b.EndAt == nil
}

// ActiveAt reports whether now lies in the closed interval [StartAt, EndAt].
// Both boundaries are inclusive.
func (b Ban) ActiveAt(now time.Time) bool {
	if now.Before(b.StartAt) {
		return false
	}
	return b.EndAt == nil || !now.After(*b.EndAt)
}

// banWire is the JSON shape: exactly one of member_id / group_id is non-null
type banWire struct {
	ID        string     `json:"id"`
	MemberID  *string    `json:"member_id"`
	GroupID   *string    `json:"group_id"`
	Reason    *string    `json:"reason"`
	StartAt   time.Time  `json:"start_at"`
	EndAt     *time.Time `json:"end_at"`
	CreatedBy string     `json:"created_by,omitempty"`
}

func (b Ban) wire() banWire {
	w := banWire{
		ID:        b.ID,
		Reason:    b.Reason,
		StartAt:   b.StartAt,
		EndAt:     b.EndAt,
		CreatedBy: b.CreatedBy,
	}
	switch s := b.Scope.(type) {
	case MemberScope:
		id := s.MemberID
		w.MemberID = &id
	case GroupScope:
		id := s.GroupID
		w.GroupID = &id
	}
	return w
}

// MarshalJSON implements json.Marshaler
func (b Ban) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.wire())
}

// UnmarshalJSON implements json.Unmarshaler, enforcing the one-scope invariant
func (b *Ban) UnmarshalJSON(data []byte) error {
	var w banWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	scope, err := ScopeFromColumns(w.MemberID, w.GroupID)
	if err != nil {
		return err
	}
	*b = Ban{
		ID:        w.ID,
		Scope:     scope,
		Reason:    w.Reason,
		StartAt:   w.StartAt,
		EndAt:     w.EndAt,
		CreatedBy: w.CreatedBy,
	}
	return nil
}

// BanView is a listing row: the ban, its server-computed active flag and the
// denormalized display data of its target.
type BanView struct {
	Ban
	Active      bool
	MemberName  string
	MemberEmail string
	GroupName   string
}

// MarshalJSON implements json.Marshaler
func (v BanView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		banWire
		Active      bool   `json:"active"`
		MemberName  string `json:"member_name,omitempty"`
		MemberEmail string `json:"member_email,omitempty"`
		GroupName   string `json:"group_name,omitempty"`
	}{
		banWire:     v.Ban.wire(),
		Active:      v.Active,
		MemberName:  v.MemberName,
		MemberEmail: v.MemberEmail,
		GroupName:   v.GroupName,
	})
}

// BanListFilter is the listing query. Every populated field is one predicate, ANDed together.
type BanListFilter struct {
	ScopeKind    ScopeKind
	ExactGroupID string
	FreeText     string
	EmailDomain  string // member scope only
	Page         int
	PageSize     int
}

// BanPage is one page of a listing
type BanPage struct {
	Items     []BanView `json:"items"`
	Total     int64     `json:"total"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
	PageCount int64     `json:"page_count"`
}
