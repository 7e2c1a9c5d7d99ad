package models

import (
	"time"

	"gorm.io/datatypes"
)

// StorageItem is the persisted form of a connection or folder node. The
// (zone, item_id) pair is the storage key; referential integrity between
// parent and child records is enforced by the connection store, never here.
type StorageItem struct {
	Zone       string         `gorm:"primaryKey;size:64" json:"zone"`
	ItemID     string         `gorm:"primaryKey;type:uuid" json:"item_id"`
	Name       string         `gorm:"not null;index" json:"name"`
	Type       string         `gorm:"not null;index" json:"type"`
	ParentID   *string        `gorm:"type:uuid;index" json:"parent_id"`
	Properties datatypes.JSON `json:"properties"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
