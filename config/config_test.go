package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.ListenAddr)
	require.Equal(t, 8443, cfg.ListenPort)
	require.Equal(t, 30*time.Second, cfg.KeepAlive)
	require.Equal(t, "/streams/subscribed/", cfg.StreamURLRoot)
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("ROUSETTE_LISTEN_PORT", "9999")
	t.Setenv("ROUSETTE_PAM_SERVICE", "custom-pam")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.ListenPort)
	require.Equal(t, "custom-pam", cfg.PamService)
}

func TestAddrCombinesHostAndPort(t *testing.T) {
	cfg := Config{ListenAddr: "127.0.0.1", ListenPort: 8080}
	require.Equal(t, "127.0.0.1:8080", cfg.Addr())
}

func TestLoadRejectsZeroWorkerThreads(t *testing.T) {
	t.Setenv("ROUSETTE_WORKER_THREADS", "0")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadRejectsUnreadableConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/path/rousette.yaml")
	require.Error(t, err)
}
