package domain

import (
	"slices"
	"time"
)

type ViolationStatus string

const (
	ViolationStatusPending   ViolationStatus = "pending"
	ViolationStatusResolved  ViolationStatus = "resolved"
	ViolationStatusDismissed ViolationStatus = "dismissed"
)

func (s ViolationStatus) Valid() bool {
	switch s {
	case ViolationStatusPending, ViolationStatusResolved, ViolationStatusDismissed:
		return true
	}
	return false
}

type ViolationSeverity string

const (
	ViolationSeverityMedium ViolationSeverity = "medium"
	ViolationSeverityHigh   ViolationSeverity = "high"
)

const ViolationTypeMultipleAccounts = "multiple_accounts"

// HighSeverityUserThreshold is the implicated-account count above which a case is high severity.
const HighSeverityUserThreshold = 3

func SeverityForUserCount(n int) ViolationSeverity {
	if n > HighSeverityUserThreshold {
		return ViolationSeverityHigh
	}
	return ViolationSeverityMedium
}

// ViolationCase records suspected account sharing on one device. Only one case per device may
// be pending at a time; the partial unique index below backs that up at the storage layer.
type ViolationCase struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	DeviceID      string            `gorm:"size:64;not null;uniqueIndex:idx_violation_cases_pending_device,where:status = 'pending'" json:"device_id"`
	ViolationType string            `gorm:"size:32;not null" json:"violation_type"`
	UserIDs       []string          `gorm:"type:text;serializer:json;not null" json:"user_ids"`
	CourseIDs     []string          `gorm:"type:text;serializer:json;not null" json:"course_ids"`
	DeviceInfo    DeviceInfo        `gorm:"type:text;serializer:json" json:"device_info"`
	IPAddress     string            `gorm:"size:64" json:"ip_address"`
	Severity      ViolationSeverity `gorm:"size:16;not null;index" json:"severity"`
	Status        ViolationStatus   `gorm:"size:16;not null;index" json:"status"`
	AdminNotes    string            `gorm:"type:text" json:"admin_notes,omitempty"`
	ReviewedBy    string            `gorm:"size:64" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Merge folds more implicated users and courses into the case and recomputes severity.
func (v *ViolationCase) Merge(userIDs, courseIDs []string) {
	v.UserIDs = UnionIDs(v.UserIDs, userIDs...)
	v.CourseIDs = UnionIDs(v.CourseIDs, courseIDs...)
	v.Severity = SeverityForUserCount(len(v.UserIDs))
}

// UnionIDs returns the sorted, de-duplicated union of existing and more, dropping empty ids.
func UnionIDs(existing []string, more ...string) []string {
	out := make([]string, 0, len(existing)+len(more))
	for _, id := range existing {
		if id != "" {
			out = append(out, id)
		}
	}
	for _, id := range more {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
