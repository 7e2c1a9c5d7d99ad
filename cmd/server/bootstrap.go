package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kmarchetti/conndock/internal/api"
	"github.com/kmarchetti/conndock/internal/app"
	"github.com/kmarchetti/conndock/internal/app/maintenance"
	iauth "github.com/kmarchetti/conndock/internal/auth"
	"github.com/kmarchetti/conndock/internal/connections"
	"github.com/kmarchetti/conndock/internal/database"
	"github.com/kmarchetti/conndock/internal/realtime"
	"github.com/kmarchetti/conndock/internal/secrets"
	"github.com/kmarchetti/conndock/internal/storage"
	"github.com/kmarchetti/conndock/internal/vault"
	"github.com/kmarchetti/conndock/pkg/logger"
)

const vaultKeyBytes = 32

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Store      *connections.Store
	Hub        *realtime.Hub
	Reconciler *maintenance.Reconciler
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, crypto, stores, background jobs,
// and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	vaultCrypto, err := initialiseVault(ctx, stack.DB, cfg, log)
	if err != nil {
		return nil, err
	}

	adapter, err := storage.NewDatabaseAdapter(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise storage adapter: %w", err)
	}

	secretStore, err := secrets.NewDatabaseStore(stack.DB, vaultCrypto)
	if err != nil {
		return nil, fmt.Errorf("initialise secret store: %w", err)
	}

	stack.Store, err = connections.NewStore(adapter, secretStore, cfg.Storage.Zones...)
	if err != nil {
		return nil, fmt.Errorf("initialise connection store: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	if cfg.Realtime.Enabled {
		stack.Hub = realtime.NewHub()
	}

	if cfg.Maintenance.Reconcile.Enabled {
		stack.Reconciler = maintenance.NewReconciler(stack.Store,
			maintenance.WithSchedule(cfg.Maintenance.Reconcile.Schedule),
		)
		if err := stack.Reconciler.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}

		if cfg.Maintenance.Reconcile.OnStartup {
			// Sweep leftovers from the previous run without delaying startup.
			go func() {
				if err := stack.Reconciler.RunOnce(context.Background()); err != nil {
					log.Warn("startup reconciliation failed", zap.Error(err))
				}
			}()
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.Store, jwtSvc, stack.Hub, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Reconciler != nil {
		stopCtx := s.Reconciler.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOptions()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

// initialiseVault resolves the credential encryption key. Preference order is
// the configured key, then the persisted key, then a freshly generated one.
// The effective key is persisted so later runs keep decrypting stored secrets.
func initialiseVault(ctx context.Context, db *gorm.DB, cfg *app.Config, log *zap.Logger) (*vault.Crypto, error) {
	key := strings.TrimSpace(cfg.Vault.EncryptionKey)

	if key == "" {
		stored, err := database.GetSystemSetting(ctx, db, database.VaultEncryptionKeySetting)
		if err != nil {
			return nil, err
		}
		key = strings.TrimSpace(stored)
	}

	if key == "" {
		generated, err := generateHexKey(vaultKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("generate vault encryption key: %w", err)
		}
		key = generated
		log.Info("generated vault encryption key")
	}

	if err := database.EnsureVaultEncryptionKey(ctx, db, key); err != nil {
		return nil, err
	}

	raw, err := app.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("decode vault encryption key: %w", err)
	}

	crypto, err := vault.NewCrypto(raw)
	if err != nil {
		return nil, fmt.Errorf("initialise vault crypto: %w", err)
	}
	return crypto, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
