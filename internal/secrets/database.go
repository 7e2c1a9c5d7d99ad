package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kmarchetti/conndock/internal/models"
	"github.com/kmarchetti/conndock/internal/vault"
)

// DatabaseStore persists secrets as AES-256-GCM ciphertext rows in the primary database.
type DatabaseStore struct {
	db     *gorm.DB
	crypto *vault.Crypto
}

// NewDatabaseStore constructs an encrypted database-backed secret store.
func NewDatabaseStore(db *gorm.DB, crypto *vault.Crypto) (*DatabaseStore, error) {
	if db == nil {
		return nil, errors.New("secrets: db is required")
	}
	if crypto == nil {
		return nil, errors.New("secrets: crypto is required")
	}
	return &DatabaseStore{db: db, crypto: crypto}, nil
}

// Put stores or replaces the secrets bag for an item.
func (s *DatabaseStore) Put(ctx context.Context, zone, id string, bag map[string]string) error {
	ctx = ensureContext(ctx)

	payload, err := json.Marshal(bag)
	if err != nil {
		return fmt.Errorf("secrets: marshal bag: %w", err)
	}

	ciphertext, err := s.crypto.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("secrets: encrypt bag: %w", err)
	}

	entry := models.SecretEntry{
		Zone:       zone,
		ItemID:     id,
		Ciphertext: ciphertext,
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "zone"}, {Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"ciphertext", "updated_at"}),
		}).Create(&entry).Error; err != nil {
		return fmt.Errorf("secrets: put: %w", err)
	}
	return nil
}

// Get returns the decrypted secrets bag, or nil when none is stored.
func (s *DatabaseStore) Get(ctx context.Context, zone, id string) (map[string]string, error) {
	ctx = ensureContext(ctx)

	var entry models.SecretEntry
	err := s.db.WithContext(ctx).
		Take(&entry, "zone = ? AND item_id = ?", zone, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("secrets: get: %w", err)
	}

	payload, err := s.crypto.Decrypt(entry.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("secrets: decrypt bag: %w", err)
	}

	var bag map[string]string
	if err := json.Unmarshal(payload, &bag); err != nil {
		return nil, fmt.Errorf("secrets: unmarshal bag: %w", err)
	}
	return bag, nil
}

// Delete removes the secrets bag; a missing entry is a no-op.
func (s *DatabaseStore) Delete(ctx context.Context, zone, id string) error {
	ctx = ensureContext(ctx)

	if err := s.db.WithContext(ctx).
		Where("zone = ? AND item_id = ?", zone, id).
		Delete(&models.SecretEntry{}).Error; err != nil {
		return fmt.Errorf("secrets: delete: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
