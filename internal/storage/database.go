package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kmarchetti/conndock/internal/models"
)

// DatabaseAdapter implements Adapter on top of the primary SQL database.
type DatabaseAdapter struct {
	db *gorm.DB
}

// NewDatabaseAdapter constructs a database-backed Adapter.
func NewDatabaseAdapter(db *gorm.DB) (*DatabaseAdapter, error) {
	if db == nil {
		return nil, errors.New("storage: db is required")
	}
	return &DatabaseAdapter{db: db}, nil
}

// GetItems returns every item stored in a zone.
func (a *DatabaseAdapter) GetItems(ctx context.Context, zone string) ([]models.StorageItem, error) {
	ctx = ensureContext(ctx)

	var items []models.StorageItem
	if err := a.db.WithContext(ctx).
		Where("zone = ?", zone).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("storage: list items: %w", err)
	}
	return items, nil
}

// GetItem returns a single item or nil when it does not exist.
func (a *DatabaseAdapter) GetItem(ctx context.Context, zone, id string) (*models.StorageItem, error) {
	ctx = ensureContext(ctx)

	var item models.StorageItem
	err := a.db.WithContext(ctx).
		Take(&item, "zone = ? AND item_id = ?", zone, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get item: %w", err)
	}
	return &item, nil
}

// Push upserts an item. With overwrite disabled an existing id yields ErrDuplicateID.
func (a *DatabaseAdapter) Push(ctx context.Context, zone string, item models.StorageItem, overwrite bool) error {
	ctx = ensureContext(ctx)
	item.Zone = zone

	if !overwrite {
		if err := a.db.WithContext(ctx).Create(&item).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrDuplicateID
			}
			return fmt.Errorf("storage: push item: %w", err)
		}
		return nil
	}

	if err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "zone"}, {Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "type", "parent_id", "properties", "updated_at",
			}),
		}).Create(&item).Error; err != nil {
		return fmt.Errorf("storage: push item: %w", err)
	}
	return nil
}

// Delete removes an item; a missing id is a no-op.
func (a *DatabaseAdapter) Delete(ctx context.Context, zone, id string) error {
	ctx = ensureContext(ctx)

	if err := a.db.WithContext(ctx).
		Where("zone = ? AND item_id = ?", zone, id).
		Delete(&models.StorageItem{}).Error; err != nil {
		return fmt.Errorf("storage: delete item: %w", err)
	}
	return nil
}

// Keys enumerates item ids without loading full records.
func (a *DatabaseAdapter) Keys(ctx context.Context, zone string) ([]string, error) {
	ctx = ensureContext(ctx)

	var ids []string
	if err := a.db.WithContext(ctx).
		Model(&models.StorageItem{}).
		Where("zone = ?", zone).
		Pluck("item_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	return ids, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
