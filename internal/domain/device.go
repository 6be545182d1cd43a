package domain

import "time"

// DeviceInfo is the raw header snapshot a fingerprint was derived from.
type DeviceInfo struct {
	UserAgent      string `json:"user_agent"`
	AcceptLanguage string `json:"accept_language"`
	AcceptEncoding string `json:"accept_encoding"`
}

// DeviceRecord binds a device fingerprint to one (user, course) pair.
type DeviceRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       string     `gorm:"size:64;not null;uniqueIndex:idx_device_records_triple,priority:1" json:"user_id"`
	CourseID     string     `gorm:"size:64;not null;uniqueIndex:idx_device_records_triple,priority:2;index:idx_device_records_device_course,priority:2" json:"course_id"`
	DeviceID     string     `gorm:"size:64;not null;uniqueIndex:idx_device_records_triple,priority:3;index:idx_device_records_device_course,priority:1" json:"device_id"`
	DeviceInfo   DeviceInfo `gorm:"type:text;serializer:json" json:"device_info"`
	UserAgent    string     `gorm:"size:512" json:"user_agent"`
	IPAddress    string     `gorm:"size:64" json:"ip_address"`
	LastActivity time.Time  `gorm:"index;not null" json:"last_activity"`
	IsActive     bool       `gorm:"index;not null" json:"is_active"`
	RegisteredAt time.Time  `gorm:"not null;<-:create" json:"registered_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
