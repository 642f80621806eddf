package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_AppliesDefaultsWhenFieldsOmitted(t *testing.T) {
	path := writeConfig(t, `
engram:
  root: /var/sentinel/engrams
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/sentinel/engrams", cfg.Engram.Root)
	assert.Equal(t, "local", cfg.Policy.Mode)
	assert.Equal(t, DefaultOPAURL, cfg.Policy.OPAURL)
	assert.Equal(t, 24, cfg.Tenant.TimeWindowHours)
	assert.Equal(t, ":7443", cfg.GRPC.ListenAddr)
}

func TestLoad_HonorsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
engram:
  root: /data/engrams
policy:
  mode: remote
  opa_url: https://opa.internal:8181
siem:
  endpoint: https://siem.internal
graph:
  endpoint: https://graph.internal
distributed:
  redis_url: redis://redis.internal:6379
  etcd_endpoints:
    - etcd-0.internal:2379
    - etcd-1.internal:2379
tenant:
  tenant_id: T1
  time_window_hours: 6
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/engrams", cfg.Engram.Root)
	assert.Equal(t, "remote", cfg.Policy.Mode)
	assert.Equal(t, "https://opa.internal:8181", cfg.Policy.OPAURL)
	assert.Equal(t, "https://siem.internal", cfg.Siem.Endpoint)
	assert.Equal(t, "https://graph.internal", cfg.Graph.Endpoint)
	assert.Equal(t, "redis://redis.internal:6379", cfg.Distributed.RedisURL)
	assert.Equal(t, []string{"etcd-0.internal:2379", "etcd-1.internal:2379"}, cfg.Distributed.EtcdEndpoints)
	assert.Equal(t, "T1", cfg.Tenant.TenantID)
	assert.Equal(t, 6, cfg.Tenant.TimeWindowHours)
}

func TestLoad_InvalidPolicyModeErrors(t *testing.T) {
	path := writeConfig(t, `
engram:
  root: /data/engrams
policy:
  mode: bogus
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/sentinel.yaml")
	assert.Error(t, err)
}
