package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "craftd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CRAFTD_PORT")
	setString(&cfg.Server.CORSOrigin, "CRAFTD_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CRAFTD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CRAFTD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CRAFTD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CRAFTD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CRAFTD_PG_HEALTH_CHECK")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.Chat.AgentName, "CRAFTD_CHAT_AGENT")
	setString(&cfg.Chat.Model, "CRAFTD_CHAT_MODEL")
	setInt64(&cfg.Cache.MaxSizeMB, "CRAFTD_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.ProjectTTL, "CRAFTD_CACHE_PROJECT_TTL")
	setString(&cfg.Logging.Level, "CRAFTD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CRAFTD_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "CRAFTD_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CRAFTD_BREAKER_TIMEOUT")
}

// validate checks invariants the rest of the process relies on.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn must not be empty")
	}
	if cfg.Postgres.MaxConns < cfg.Postgres.MinConns {
		return fmt.Errorf("postgres.max_conns (%d) must be >= postgres.min_conns (%d)",
			cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	}
	if cfg.Chat.AgentName == "" {
		return errors.New("chat.agent_name must not be empty")
	}
	if cfg.Chat.Model == "" {
		return errors.New("chat.model must not be empty")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}
