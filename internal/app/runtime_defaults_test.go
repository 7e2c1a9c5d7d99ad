package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRuntimeDefaultsGeneratesSecrets(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)

	require.True(t, generated["auth.jwt.secret"])
	require.True(t, generated["auth.admin_key"])
	require.NotEmpty(t, cfg.Auth.JWT.Secret)
	require.NotEmpty(t, cfg.Auth.AdminKey)
}

func TestApplyRuntimeDefaultsKeepsExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.JWT.Secret = "configured-secret"
	cfg.Auth.AdminKey = "configured-key"

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)

	require.Empty(t, generated)
	require.Equal(t, "configured-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "configured-key", cfg.Auth.AdminKey)
}

func TestApplyRuntimeDefaultsNilConfig(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	require.Error(t, err)
}
