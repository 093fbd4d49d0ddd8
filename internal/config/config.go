// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package config defines wivrnd's configuration surface, loaded via
// github.com/USA-RedDragon/configulator from
// $XDG_CONFIG_HOME/wivrn/config.yaml, environment variables, and CLI
// flags, in that order of increasing precedence.
package config

import "time"

// Config is the root configuration object.
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level"`
	DataDir   string          `yaml:"data_dir"`
	Session   SessionConfig   `yaml:"session"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	HTTP      HTTPConfig      `yaml:"http"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// SessionConfig controls the reliable/datagram transport listeners and
// the deployment-wide KDF salt mixed into every session's secrets.
type SessionConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	Port           int           `yaml:"port"`
	DeploymentSalt string        `yaml:"deployment_salt"`
	ReplayWindow   int           `yaml:"replay_window"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

// MetricsConfig controls the Prometheus metrics server and, via
// OTLPEndpoint, OpenTelemetry instrumentation: set, the control-plane
// HTTP API (otelgin), Redis pubsub (redisotel) and the keystore database
// (otelgorm) are instrumented; left empty, none of them is. wivrnd
// installs no trace exporter of its own, so spans go to whatever global
// tracer provider is registered.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ListenAddr   string `yaml:"listen_addr"`
	Port         int    `yaml:"port"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// DatabaseConfig controls internal/keystore's SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// PairingAttemptRetention bounds how long failed and successful
	// pairing-ceremony audit rows are kept before the scheduler
	// compacts them.
	PairingAttemptRetention time.Duration `yaml:"pairing_attempt_retention"`
}

// RedisConfig controls internal/pubsub's optional Redis backend, used
// when the control plane runs as more than one instance behind a
// shared event bus.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// HTTPConfig controls the control-plane HTTP API.
type HTTPConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	Port           int      `yaml:"port"`
	CORSHosts      []string `yaml:"cors_hosts"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	Secret         string   `yaml:"secret"`
	// Debug registers gin-contrib/pprof's routes alongside the control
	// plane API; left off in production deployments.
	Debug bool `yaml:"debug"`
}

// DiscoveryConfig controls mDNS advertisement of the session service.
type DiscoveryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ServerName string `yaml:"server_name"`
}

// Defaults returns a Config with every field set to the value wivrnd
// ships with out of the box, mirroring the teacher's loadConfig
// fallback chain but expressed as an explicit constructor rather than
// struct-tag defaults, since every field here also has an environment
// or CLI override path through configulator.
func Defaults() Config {
	return Config{
		LogLevel: LogLevelInfo,
		DataDir:  "$XDG_DATA_HOME/wivrn",
		Session: SessionConfig{
			ListenAddr:   "0.0.0.0",
			Port:         9757,
			ReplayWindow: 1024,
			IdleTimeout:  5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1",
			Port:       9758,
		},
		Database: DatabaseConfig{
			Path:                    "$XDG_DATA_HOME/wivrn/wivrnd.db",
			PairingAttemptRetention: 30 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			ListenAddr: "127.0.0.1",
			Port:       9759,
			CORSHosts:  []string{"http://localhost:9759"},
		},
		Discovery: DiscoveryConfig{
			Enabled:    true,
			ServerName: "wivrnd",
		},
	}
}
