// Package config loads the kernel's YAML configuration: database
// connection, cache backend, RAG provider, and script-engine settings.
// Grounded on the teacher's config package shape (a plain struct tree
// loaded from YAML), trimmed to what the kernel actually needs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig describes the SQL storage backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres | mysql | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig describes the L2 cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MongoConfig describes the optional Mongo-backed durable event log used
// for the event bus's trace sink and the performance monitor's replay
// persistence. Empty URI leaves both in-memory only.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// RAGConfig describes the vector storage / embedding defaults.
type RAGConfig struct {
	Enabled         bool `yaml:"enabled"`
	DefaultDimension int `yaml:"default_dimension"`
}

// KernelConfig describes the kernel's network/diagnostics surface.
type KernelConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	EnableSessions bool  `yaml:"enable_sessions"`
	TraceExporter string `yaml:"trace_exporter"` // "" | "otlp"
}

// LogConfig describes the kernel's zap logger setup.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// TelemetryConfig describes the kernel's OpenTelemetry exporter settings.
// When Enabled is false, no exporters are created and the kernel's
// tracer/meter providers stay noop.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Config is the top-level kernel configuration document.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Mongo     MongoConfig     `yaml:"mongo"`
	RAG       RAGConfig       `yaml:"rag"`
	Kernel    KernelConfig    `yaml:"kernel"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns a config suitable for a local, dependency-free run
// (sqlite + no redis + in-memory RAG).
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", Name: "lucid.db"},
		RAG:      RAGConfig{Enabled: true, DefaultDimension: 384},
		Kernel:   KernelConfig{ListenAddr: ":8099"},
		Telemetry: TelemetryConfig{
			ServiceName:  "lucid-kernel",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
