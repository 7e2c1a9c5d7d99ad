package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(Config{DSN: "file:db_test_default?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, sqlDB.Ping())
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "conndock", Name: "registry", Password: "pw"})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "dbname=registry")
	require.Contains(t, dsn, "sslmode=disable")

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "conndock", Name: "registry"})
	require.NoError(t, err)
	require.Contains(t, dsn, "conndock@tcp(127.0.0.1:3306)/registry")
	require.Contains(t, dsn, "parseTime=True")
}

func TestEnsureVaultEncryptionKey(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:db_test_vault?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, EnsureVaultEncryptionKey(ctx, db, "abc123"))

	stored, err := GetSystemSetting(ctx, db, VaultEncryptionKeySetting)
	require.NoError(t, err)
	require.Equal(t, "abc123", stored)

	// Idempotent when the key is unchanged, updated when it differs.
	require.NoError(t, EnsureVaultEncryptionKey(ctx, db, "abc123"))
	require.NoError(t, EnsureVaultEncryptionKey(ctx, db, "def456"))

	stored, err = GetSystemSetting(ctx, db, VaultEncryptionKeySetting)
	require.NoError(t, err)
	require.Equal(t, "def456", stored)
}
