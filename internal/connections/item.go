package connections

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/kmarchetti/conndock/internal/models"
)

// Default zones partitioning the connection namespace. Items in different
// zones never reference each other as parent/child.
const (
	ZoneClusters  = "clusters"
	ZoneEmulators = "emulators"
)

// DefaultZones lists the zones swept by orphan reconciliation out of the box.
var DefaultZones = []string{ZoneClusters, ZoneEmulators}

// ItemType distinguishes folder nodes from connection leaves.
type ItemType string

const (
	TypeConnection ItemType = "connection"
	TypeFolder     ItemType = "folder"
)

// Valid reports whether the type is one of the known item kinds.
func (t ItemType) Valid() bool {
	return t == TypeConnection || t == TypeFolder
}

// Well-known keys of the secrets bag.
const (
	SecretConnectionString = "connection_string"
	SecretUsername         = "username"
	SecretPassword         = "password"
	SecretEntraTenantID    = "entra_tenant_id"
	SecretEntraClientID    = "entra_client_id"
)

// Properties carries connection metadata that is opaque to the storage and
// reconciliation layers.
type Properties struct {
	API                string   `json:"api,omitempty"` // documentdb | mongodb | vcore
	Host               string   `json:"host,omitempty"`
	Port               int      `json:"port,omitempty"`
	AuthMethods        []string `json:"auth_methods,omitempty"`
	SelectedAuthMethod string   `json:"selected_auth_method,omitempty"`
	IsEmulator         bool     `json:"is_emulator,omitempty"`
}

// Item is a node in a zone's connection tree: either a connection leaf or a
// folder. The id is the stable cache/credential key; parentId is nil for
// root-level items and must otherwise point at a folder in the same zone.
type Item struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       ItemType          `json:"type"`
	ParentID   *string           `json:"parent_id,omitempty"`
	Properties Properties        `json:"properties"`
	Secrets    map[string]string `json:"secrets,omitempty"`
}

// toRecord converts an Item to its persisted form. Secrets are excluded;
// they travel through the secret store.
func toRecord(zone string, item Item) (models.StorageItem, error) {
	props, err := json.Marshal(item.Properties)
	if err != nil {
		return models.StorageItem{}, fmt.Errorf("connections: marshal properties: %w", err)
	}

	return models.StorageItem{
		Zone:       zone,
		ItemID:     item.ID,
		Name:       item.Name,
		Type:       string(item.Type),
		ParentID:   item.ParentID,
		Properties: datatypes.JSON(props),
	}, nil
}

// fromRecord converts a persisted record back to an Item, without secrets.
func fromRecord(record models.StorageItem) (Item, error) {
	item := Item{
		ID:       record.ItemID,
		Name:     record.Name,
		Type:     ItemType(record.Type),
		ParentID: record.ParentID,
	}

	if len(record.Properties) > 0 {
		if err := json.Unmarshal(record.Properties, &item.Properties); err != nil {
			return Item{}, fmt.Errorf("connections: unmarshal properties: %w", err)
		}
	}
	return item, nil
}
