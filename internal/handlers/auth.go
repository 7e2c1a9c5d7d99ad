package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/kmarchetti/conndock/internal/auth"
	"github.com/kmarchetti/conndock/pkg/crypto"
	"github.com/kmarchetti/conndock/pkg/errors"
	"github.com/kmarchetti/conndock/pkg/response"
)

// AuthHandler exchanges the deployment admin key for short-lived API tokens.
// The key itself is never kept in memory past construction; only its bcrypt
// hash is retained for comparison.
type AuthHandler struct {
	adminKeyHash string
	jwt          *iauth.JWTService
	tokenTTL     time.Duration
}

// NewAuthHandler constructs the token exchange handler. An empty admin key,
// or one bcrypt cannot hash, leaves the handler rejecting every exchange.
func NewAuthHandler(adminKey string, jwt *iauth.JWTService, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = iauth.DefaultAccessTokenTTL
	}

	var hash string
	if adminKey != "" {
		if hashed, err := crypto.HashPassword(adminKey); err == nil {
			hash = hashed
		}
	}
	return &AuthHandler{adminKeyHash: hash, jwt: jwt, tokenTTL: tokenTTL}
}

type tokenPayload struct {
	AdminKey string `json:"admin_key" validate:"required"`
}

// Token validates the admin key and issues a signed access token.
func (h *AuthHandler) Token(c *gin.Context) {
	var payload tokenPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if h.adminKeyHash == "" || !crypto.VerifyPassword(h.adminKeyHash, payload.AdminKey) {
		response.Error(c, errors.ErrInvalidAdminKey)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		Client: "admin",
		Scope:  "items:admin",
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.tokenTTL.Seconds()),
	})
}
