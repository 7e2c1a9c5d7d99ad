package models

import "time"

// SystemSetting stores instance-level key/value settings such as the
// generated vault encryption key fingerprint.
type SystemSetting struct {
	Key   string `gorm:"primaryKey;size:128" json:"key"`
	Value string `gorm:"type:text" json:"value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
