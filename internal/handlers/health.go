package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kmarchetti/conndock/pkg/errors"
	"github.com/kmarchetti/conndock/pkg/response"
)

// Health returns a simple status payload useful for liveness checks.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Ready reports whether the database is reachable.
func Ready(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			response.Error(c, errors.ErrInternalServer)
			return
		}

		sqlDB, err := db.DB()
		if err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			return
		}
		if err := sqlDB.PingContext(requestContext(c)); err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			return
		}

		response.Success(c, http.StatusOK, gin.H{"status": "ready"})
	}
}
