package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/kmarchetti/conndock/internal/auth"
	"github.com/kmarchetti/conndock/internal/realtime"
	"github.com/kmarchetti/conndock/pkg/errors"
	"github.com/kmarchetti/conndock/pkg/response"
)

// EventsHandler upgrades HTTP connections into authenticated WebSocket streams
// carrying item change events per zone.
type EventsHandler struct {
	hub          *realtime.Hub
	jwt          *iauth.JWTService
	allowedZones map[string]struct{}
}

// NewEventsHandler constructs an events handler restricted to the given zones.
func NewEventsHandler(hub *realtime.Hub, jwt *iauth.JWTService, zones ...string) *EventsHandler {
	allowed := make(map[string]struct{}, len(zones))
	for _, zone := range zones {
		zone = strings.ToLower(strings.TrimSpace(zone))
		if zone == "" {
			continue
		}
		allowed[zone] = struct{}{}
	}

	return &EventsHandler{hub: hub, jwt: jwt, allowedZones: allowed}
}

// Stream validates the caller and subscribes it to the requested zone
// streams. Browsers cannot set headers on websocket dials, so the token is
// also accepted as a query parameter.
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var streams []string
	if zones := strings.TrimSpace(c.Query("zones")); zones != "" {
		streams = strings.Split(zones, ",")
	} else {
		for zone := range h.allowedZones {
			streams = append(streams, zone)
		}
	}

	h.hub.Serve(claims.Client, streams, h.allowedZones, c.Writer, c.Request)
}
