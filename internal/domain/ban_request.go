package domain

// BanMembersRequest bulk member ban body
type BanMembersRequest struct {
	MemberIDs []string `json:"member_ids" validate:"max=5000,dive,max=64"`
	Reason    *string  `json:"reason" validate:"omitempty,max=1000"`
	Duration  string   `json:"duration" validate:"omitempty,max=20"`
	EndAt     string   `json:"end_at" validate:"omitempty,max=40"`
}

// BanGroupRequest group ban body
type BanGroupRequest struct {
	GroupID  string  `json:"group_id" validate:"max=64"`
	Reason   *string `json:"reason" validate:"omitempty,max=1000"`
	Duration string  `json:"duration" validate:"omitempty,max=20"`
	EndAt    string  `json:"end_at" validate:"omitempty,max=40"`
}

// BulkDeleteRequest bulk unban body
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"max=5000,dive,max=64"`
}

// ChunkResult is the outcome of one fixed-size chunk of a bulk operation
type ChunkResult struct {
	IDs      []string `json:"ids"`
	OK       bool     `json:"ok"`
	Affected int64    `json:"affected"`
	Error    string   `json:"error,omitempty"`
}

// BulkResult reports a bulk operation chunk by chunk
type BulkResult struct {
	Requested int           `json:"requested"`
	Affected  int64         `json:"affected"`
	Chunks    []ChunkResult `json:"chunks"`
}

// Failed reports whether any chunk failed
func (r *BulkResult) Failed() bool {
	for _, c := range r.Chunks {
		if !c.OK {
			return true
		}
	}
	return false
}

// FailedIDs returns the ids of every failed chunk
func (r *BulkResult) FailedIDs() []string {
	var ids []string
	for _, c := range r.Chunks {
		if !c.OK {
			ids = append(ids, c.IDs...)
		}
	}
	return ids
}

// BanMembersResult is the outcome of a bulk member ban
type BanMembersResult struct {
	Bans   []Ban      `json:"bans"`
	Result BulkResult `json:"result"`
}
