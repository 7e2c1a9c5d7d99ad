package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kmarchetti/conndock/internal/connections"
	"github.com/kmarchetti/conndock/internal/secrets"
	"github.com/kmarchetti/conndock/internal/storage"
	"github.com/kmarchetti/conndock/pkg/response"
)

func TestMaintenanceReconcile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store, err := connections.NewStore(storage.NewMemoryAdapter(), secrets.NewMemoryStore())
	require.NoError(t, err)

	missing := "missing-parent"
	orphan, err := store.Save(context.Background(), connections.ZoneClusters, connections.Item{
		Name:     "orphan",
		Type:     connections.TypeConnection,
		ParentID: &missing,
	})
	require.NoError(t, err)

	handler := NewMaintenanceHandler(store, nil)
	r := gin.New()
	r.POST("/api/maintenance/reconcile", handler.Reconcile)

	w := doJSON(t, r, http.MethodPost, "/api/maintenance/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	data := payload.Data.(map[string]any)
	reports, ok := data["reports"].([]any)
	require.True(t, ok)
	require.Len(t, reports, len(connections.DefaultZones))

	got, err := store.Get(context.Background(), connections.ZoneClusters, orphan.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}
