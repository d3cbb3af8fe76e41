package domain

import "strings"

// Member is a row of the external member directory (read-only here)
type Member struct {
	ID        string  `gorm:"column:id;primaryKey;size:64" json:"id"`
	FirstName string  `gorm:"column:first_name;size:100" json:"first_name"`
	LastName  string  `gorm:"column:last_name;size:100" json:"last_name"`
	Email     string  `gorm:"column:email;size:255;index" json:"email"`
	GroupID   *string `gorm:"column:group_id;size:64;index" json:"group_id"`
}

// TableName returns the table name for Member
func (Member) TableName() string { return "members" }

// DisplayName composes first and last name
func (m Member) DisplayName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Group is a row of the external group ("policy") directory (read-only here)
type Group struct {
	ID           string `gorm:"column:id;primaryKey;size:64" json:"id"`
	Name         string `gorm:"column:name;size:255" json:"name"`
	RequestLimit int    `gorm:"column:request_limit;default:0" json:"request_limit"`
}

// TableName returns the table name for Group
func (Group) TableName() string { return "member_groups" }

// MemberStatus is the computed per-member block predicate
type MemberStatus struct {
	MemberID string `json:"member_id"`
	Blocked  bool   `json:"blocked"`
}

// MemberWithStatus is a member-listing row with its computed Active/Banned flag
type MemberWithStatus struct {
	Member
	DisplayName string `json:"display_name"`
	Blocked     bool   `json:"blocked"`
}

// GroupBanFlag is a group picker row
type GroupBanFlag struct {
	Group             Group `json:"group"`
	IsCurrentlyBanned bool  `json:"is_currently_banned"`
}
