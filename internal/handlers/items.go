package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kmarchetti/conndock/internal/connections"
	"github.com/kmarchetti/conndock/internal/realtime"
	"github.com/kmarchetti/conndock/pkg/errors"
	"github.com/kmarchetti/conndock/pkg/response"
)

// ItemHandler exposes the connection registry CRUD APIs.
type ItemHandler struct {
	store *connections.Store
	hub   *realtime.Hub
	zones map[string]struct{}
}

// NewItemHandler constructs a handler over the supplied store. The hub is
// optional; when present, item changes are broadcast to zone subscribers.
func NewItemHandler(store *connections.Store, hub *realtime.Hub) *ItemHandler {
	zones := make(map[string]struct{})
	if store != nil {
		for _, zone := range store.Zones() {
			zones[zone] = struct{}{}
		}
	}
	return &ItemHandler{store: store, hub: hub, zones: zones}
}

type itemPayload struct {
	ID         string                 `json:"id" validate:"omitempty,max=128"`
	Name       string                 `json:"name" validate:"required,min=1,max=256"`
	Type       string                 `json:"type" validate:"required,oneof=connection folder"`
	ParentID   *string                `json:"parent_id"`
	Properties connections.Properties `json:"properties"`
	Secrets    map[string]string      `json:"secrets"`
}

// zone resolves and validates the zone path parameter. Unknown zones map to
// 404 so the zone namespace is not enumerable by probing.
func (h *ItemHandler) zone(c *gin.Context) (string, bool) {
	zone := strings.TrimSpace(c.Param("zone"))
	if _, ok := h.zones[zone]; !ok {
		response.Error(c, errors.ErrNotFound)
		return "", false
	}
	return zone, true
}

// List returns every item in a zone, folders included. Secrets are never
// part of listings.
func (h *ItemHandler) List(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}

	items, err := h.store.GetAllItems(requestContext(c), zone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Connections returns only the connection leaves of a zone.
func (h *ItemHandler) Connections(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}

	items, err := h.store.GetAll(requestContext(c), zone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Tree returns the zone's folder hierarchy with aggregated connection counts.
func (h *ItemHandler) Tree(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}

	tree, err := h.store.Tree(requestContext(c), zone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tree)
}

// Get returns a single item. Secrets are redacted unless the caller asks for
// them with include_secrets=true.
func (h *ItemHandler) Get(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}

	item, err := h.store.Get(requestContext(c), zone, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if item == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	if c.Query("include_secrets") != "true" {
		item.Secrets = nil
	}
	response.Success(c, http.StatusOK, item)
}

// Create stores a new item, generating an id when the payload omits one.
func (h *ItemHandler) Create(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}

	var payload itemPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	saved, err := h.store.Save(requestContext(c), zone, connections.Item{
		ID:         payload.ID,
		Name:       payload.Name,
		Type:       connections.ItemType(payload.Type),
		ParentID:   payload.ParentID,
		Properties: payload.Properties,
		Secrets:    payload.Secrets,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.broadcast(zone, realtime.EventItemSaved, saved)

	redacted := *saved
	redacted.Secrets = nil
	response.Success(c, http.StatusCreated, redacted)
}

// Update overwrites an existing item under the id from the path.
func (h *ItemHandler) Update(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}

	id := c.Param("id")
	ctx := requestContext(c)

	existing, err := h.store.Get(ctx, zone, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if existing == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	var payload itemPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	// An item's type is fixed at creation. Re-typing a folder would strand
	// its children as orphans for the next reconciliation sweep.
	if connections.ItemType(payload.Type) != existing.Type {
		response.Error(c, errors.NewConflict("item type cannot be changed"))
		return
	}

	saved, err := h.store.Save(ctx, zone, connections.Item{
		ID:         id,
		Name:       payload.Name,
		Type:       connections.ItemType(payload.Type),
		ParentID:   payload.ParentID,
		Properties: payload.Properties,
		Secrets:    payload.Secrets,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.broadcast(zone, realtime.EventItemSaved, saved)

	redacted := *saved
	redacted.Secrets = nil
	response.Success(c, http.StatusOK, redacted)
}

// Delete removes an item and its credentials. Children are left in place for
// the reconciliation sweep.
func (h *ItemHandler) Delete(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.store.Delete(requestContext(c), zone, id); err != nil {
		response.Error(c, err)
		return
	}

	h.broadcast(zone, realtime.EventItemDeleted, gin.H{"id": id})
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

func (h *ItemHandler) broadcast(zone, event string, data any) {
	if h.hub == nil {
		return
	}

	if item, ok := data.(*connections.Item); ok {
		redacted := *item
		redacted.Secrets = nil
		data = redacted
	}
	h.hub.BroadcastStream(zone, realtime.Message{Event: event, Data: data})
}
