package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level configuration for docgemma-connect, loaded via
// LoadRaw + decodeRawConfig. It is deliberately small next to the
// teacher's Config: no channel adapters, no plugin marketplace, no
// sandboxing — just the server address, the session data directory, the
// model adapter's credentials, and the Graph Runtime's tuning knobs.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Model         ModelConfig         `yaml:"model"`
	Graph         GraphConfig         `yaml:"graph"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig configures the REST + websocket entrypoint.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SessionsConfig configures the Session Store.
type SessionsConfig struct {
	// Backend selects the Store implementation: "memory" or "file".
	Backend string `yaml:"backend"`

	// DataDir is the FileStore's session directory. Unused for "memory".
	DataDir string `yaml:"data_dir"`

	// LockTimeout bounds how long a turn waits to acquire a session's
	// write lock before giving up (spec §4.C invariant I3).
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// ModelConfig configures the Model Adapter.
type ModelConfig struct {
	// Provider selects the Adapter implementation: "anthropic" or "fake".
	// "fake" is for local/offline runs and tests; it never calls out.
	Provider string `yaml:"provider"`

	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	DefaultModel string        `yaml:"default_model"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// GraphConfig configures the Graph Runtime (spec §4.F).
type GraphConfig struct {
	// MaxToolIterations is the hard ceiling on tool-loop iterations.
	// Defaults to 5 when zero.
	MaxToolIterations int `yaml:"max_tool_iterations"`

	// ApprovalGating, when true, pauses before every tool execution for
	// clinician sign-off. Defaults to true.
	ApprovalGating *bool `yaml:"approval_gating"`
}

// LoggingConfig configures the slog-based logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ObservabilityConfig configures the metrics endpoint.
type ObservabilityConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

// Load reads path (resolving $include directives), decodes it into a
// Config, applies defaults and environment overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Sessions.Backend == "" {
		cfg.Sessions.Backend = "memory"
	}
	if cfg.Sessions.DataDir == "" {
		cfg.Sessions.DataDir = "sessions"
	}
	if cfg.Sessions.LockTimeout == 0 {
		cfg.Sessions.LockTimeout = 10 * time.Second
	}

	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "anthropic"
	}
	if cfg.Model.DefaultModel == "" {
		cfg.Model.DefaultModel = "claude-sonnet-4-20250514"
	}
	if cfg.Model.MaxRetries == 0 {
		cfg.Model.MaxRetries = 2
	}
	if cfg.Model.RetryDelay == 0 {
		cfg.Model.RetryDelay = 500 * time.Millisecond
	}

	if cfg.Graph.MaxToolIterations == 0 {
		cfg.Graph.MaxToolIterations = 5
	}
	if cfg.Graph.ApprovalGating == nil {
		gating := true
		cfg.Graph.ApprovalGating = &gating
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.MetricsPort == 0 {
		cfg.Observability.MetricsPort = 9090
	}
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if value := strings.TrimSpace(os.Getenv("DOCGEMMA_HOST")); value != "" {
		cfg.Server.Host = value
	}
	if value := strings.TrimSpace(os.Getenv("DOCGEMMA_PORT")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("DOCGEMMA_SESSIONS_DATA_DIR")); value != "" {
		cfg.Sessions.DataDir = value
	}
	if value := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); value != "" {
		cfg.Model.APIKey = value
	}
	if value := strings.TrimSpace(os.Getenv("DOCGEMMA_MODEL_API_KEY")); value != "" {
		cfg.Model.APIKey = value
	}
}

// ConfigValidationError collects every validation failure found in one
// Load call, matching the teacher's all-at-once reporting style.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var issues []string

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, "server.port must be between 0 and 65535")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Sessions.Backend)) {
	case "memory", "file":
	default:
		issues = append(issues, `sessions.backend must be "memory" or "file"`)
	}
	if cfg.Sessions.LockTimeout < 0 {
		issues = append(issues, "sessions.lock_timeout must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Model.Provider)) {
	case "anthropic", "fake":
	default:
		issues = append(issues, `model.provider must be "anthropic" or "fake"`)
	}
	if strings.EqualFold(cfg.Model.Provider, "anthropic") && strings.TrimSpace(cfg.Model.APIKey) == "" {
		issues = append(issues, "model.api_key is required when model.provider is \"anthropic\"")
	}
	if cfg.Model.MaxRetries < 0 {
		issues = append(issues, "model.max_retries must be >= 0")
	}
	if cfg.Model.RetryDelay < 0 {
		issues = append(issues, "model.retry_delay must be >= 0")
	}

	if cfg.Graph.MaxToolIterations < 1 {
		issues = append(issues, "graph.max_tool_iterations must be >= 1")
	}

	if cfg.Observability.MetricsPort < 0 || cfg.Observability.MetricsPort > 65535 {
		issues = append(issues, "observability.metrics_port must be between 0 and 65535")
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
