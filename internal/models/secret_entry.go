package models

import "time"

// SecretEntry holds the encrypted secrets bag for an item, keyed identically
// to its StorageItem so credential material never rides along with metadata.
type SecretEntry struct {
	Zone       string `gorm:"primaryKey;size:64" json:"zone"`
	ItemID     string `gorm:"primaryKey;type:uuid" json:"item_id"`
	Ciphertext string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
