package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kmarchetti/conndock/internal/app"
	"github.com/kmarchetti/conndock/internal/database"
	"github.com/kmarchetti/conndock/internal/models"
)

func TestInitialiseVaultPersistsGeneratedKey(t *testing.T) {
	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	ctx := context.Background()
	cfg := &app.Config{}

	crypto, err := initialiseVault(ctx, db, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, crypto)

	stored, err := database.GetSystemSetting(ctx, db, database.VaultEncryptionKeySetting)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	// A second start with an empty config key reuses the persisted key.
	again, err := initialiseVault(ctx, db, cfg, zap.NewNop())
	require.NoError(t, err)

	ciphertext, err := crypto.Encrypt([]byte("credential"))
	require.NoError(t, err)
	plaintext, err := again.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, []byte("credential"), plaintext)
}

func TestInitialiseVaultPrefersConfiguredKey(t *testing.T) {
	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	ctx := context.Background()
	cfg := &app.Config{}
	cfg.Vault.EncryptionKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

	_, err = initialiseVault(ctx, db, cfg, zap.NewNop())
	require.NoError(t, err)

	stored, err := database.GetSystemSetting(ctx, db, database.VaultEncryptionKeySetting)
	require.NoError(t, err)
	require.Equal(t, cfg.Vault.EncryptionKey, stored)
}

func TestGenerateHexKey(t *testing.T) {
	key, err := generateHexKey(32)
	require.NoError(t, err)
	require.Len(t, key, 64)

	_, err = generateHexKey(0)
	require.Error(t, err)
}
