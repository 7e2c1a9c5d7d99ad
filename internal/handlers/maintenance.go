package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmarchetti/conndock/internal/connections"
	"github.com/kmarchetti/conndock/internal/realtime"
	"github.com/kmarchetti/conndock/pkg/response"
)

// MaintenanceHandler exposes on-demand reconciliation sweeps.
type MaintenanceHandler struct {
	store *connections.Store
	hub   *realtime.Hub
}

// NewMaintenanceHandler constructs the maintenance handler. The hub is optional.
func NewMaintenanceHandler(store *connections.Store, hub *realtime.Hub) *MaintenanceHandler {
	return &MaintenanceHandler{store: store, hub: hub}
}

// Reconcile runs an orphan reconciliation sweep across every zone and returns
// the per-zone reports. Partially failed sweeps still return the reports
// gathered so far.
func (h *MaintenanceHandler) Reconcile(c *gin.Context) {
	reports, err := h.store.CleanupOrphanedItems(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.hub != nil {
		for _, report := range reports {
			h.hub.BroadcastStream(report.Zone, realtime.Message{
				Event: realtime.EventReconciled,
				Data:  report,
			})
		}
	}

	response.Success(c, http.StatusOK, gin.H{"reports": reports})
}
