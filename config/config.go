// Package config loads Sentinel's process-level settings file (ambient
// stack §2): OPA and graph/SIEM endpoints, the engram store root, and
// tenant defaults, the way the teacher's component.Load loads
// component.yaml — a single yaml.v3-tagged struct, a thin Load(path), and
// defaulting applied after unmarshal rather than scattered across callers.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngramConfig configures the engram store.
type EngramConfig struct {
	Root string `yaml:"root"`
}

// PolicyConfig configures the policy engine. Mode selects between the
// in-process CEL evaluator ("local", the default) and the remote OPA
// client ("remote").
type PolicyConfig struct {
	Mode   string `yaml:"mode,omitempty"` // "local" (default) or "remote"
	OPAURL string `yaml:"opa_url,omitempty"`
}

// DefaultOPAURL mirrors the original's DEFAULT_OPA_URL for the remote
// policy client (spec.md §4.4, SPEC_FULL.md §4.4).
const DefaultOPAURL = "http://localhost:8181"

// SiemConfig configures the SIEM connector used by hunt playbooks.
type SiemConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// GraphConfig configures the knowledge-graph connector used by simulation
// playbooks.
type GraphConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// DistributedConfig configures the orchestrator's optional multi-replica
// components (SPEC_FULL.md §4.8). Both are disabled unless their
// respective fields are non-empty.
type DistributedConfig struct {
	RedisURL      string   `yaml:"redis_url,omitempty"`
	EtcdEndpoints []string `yaml:"etcd_endpoints,omitempty"`
	ReplicaAddr   string   `yaml:"replica_addr,omitempty"`
}

// TenantDefaults holds fallback values applied when a request omits them.
type TenantDefaults struct {
	TenantID        string `yaml:"tenant_id,omitempty"`
	TimeWindowHours int    `yaml:"time_window_hours,omitempty"`
}

// GRPCConfig configures the orchestrator's gRPC front door (SPEC_FULL.md
// §4.9).
type GRPCConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// Config is the root of a Sentinel process configuration file.
type Config struct {
	Engram      EngramConfig       `yaml:"engram"`
	Policy      PolicyConfig       `yaml:"policy,omitempty"`
	Siem        SiemConfig         `yaml:"siem,omitempty"`
	Graph       GraphConfig        `yaml:"graph,omitempty"`
	Distributed DistributedConfig  `yaml:"distributed,omitempty"`
	Tenant      TenantDefaults     `yaml:"tenant,omitempty"`
	GRPC        GRPCConfig         `yaml:"grpc,omitempty"`
	LogLevel    string             `yaml:"log_level,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.Engram.Root == "" {
		c.Engram.Root = "./engrams"
	}
	if c.Policy.Mode == "" {
		c.Policy.Mode = "local"
	}
	if c.Policy.OPAURL == "" {
		c.Policy.OPAURL = DefaultOPAURL
	}
	if c.Tenant.TimeWindowHours == 0 {
		c.Tenant.TimeWindowHours = 24
	}
	if c.GRPC.ListenAddr == "" {
		c.GRPC.ListenAddr = ":7443"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports malformed configuration that Load's defaulting cannot
// repair on its own.
func (c *Config) Validate() error {
	if c.Policy.Mode != "local" && c.Policy.Mode != "remote" {
		return fmt.Errorf("config: policy.mode must be \"local\" or \"remote\", got %q", c.Policy.Mode)
	}
	if c.Policy.Mode == "remote" && c.Policy.OPAURL == "" {
		return fmt.Errorf("config: policy.opa_url is required when policy.mode is \"remote\"")
	}
	return nil
}

// Load reads and parses a Sentinel configuration file from path, applying
// defaults for every field a deployment is allowed to omit.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadTimeWindow converts the configured tenant default time window hours
// into a time.Duration, for callers that construct hunt playbook configs
// from process settings.
func (c *Config) LoadTimeWindow() time.Duration {
	return time.Duration(c.Tenant.TimeWindowHours) * time.Hour
}
