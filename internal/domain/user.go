package domain

import "time"

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// User mirrors the slice of the account record this service reads and writes.
type User struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Email     string     `gorm:"size:255;uniqueIndex" json:"email"`
	Name      string     `gorm:"size:255" json:"name"`
	Status    UserStatus `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Course struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CourseSummary struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}
