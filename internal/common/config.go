package common

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Basic project metadata.
const (
	ProjectName    = "deskclient"
	ProjectVersion = "0.1.0"
)

type Config struct {
	// Base endpoint of the helpdesk REST API, fixed at construction.
	BaseURL string `yaml:"base_url"`
	// Durable credential file written on login/register, cleared on logout.
	CredentialPath string `yaml:"credential_path"`
	Environment    string `yaml:"environment"`
	LogFilePath    string `yaml:"log_file"`
	// Prometheus exposition address; empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`
	// Suggestion polling policy.
	PollMaxAttempts int `yaml:"poll_max_attempts"`
	PollBaseDelayMS int `yaml:"poll_base_delay_ms"`
	// TTL for resolved suggestions, in seconds; 0 disables the cache.
	SuggestionTTLSec int `yaml:"suggestion_cache_ttl_sec"`
}

// LoadConfig resolves configuration from, in increasing precedence:
// built-in defaults, an optional YAML file (DESK_CONFIG), and environment
// variables. A .env file is folded into the environment first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()
	cfg := &Config{
		BaseURL:          "http://localhost:8080/api",
		CredentialPath:   defaultCredentialPath(),
		Environment:      "development",
		PollMaxAttempts:  5,
		PollBaseDelayMS:  1000,
		SuggestionTTLSec: 120,
	}
	if path := os.Getenv("DESK_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, cfg)
		}
	}
	cfg.BaseURL = getenv("DESK_BASE_URL", cfg.BaseURL)
	cfg.CredentialPath = getenv("DESK_CREDENTIALS", cfg.CredentialPath)
	cfg.Environment = getenv("DESK_ENV", cfg.Environment)
	cfg.LogFilePath = getenv("DESK_LOG_FILE", cfg.LogFilePath)
	cfg.MetricsAddr = getenv("DESK_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PollMaxAttempts = getenvInt("DESK_POLL_MAX_ATTEMPTS", cfg.PollMaxAttempts)
	cfg.PollBaseDelayMS = getenvInt("DESK_POLL_BASE_DELAY_MS", cfg.PollBaseDelayMS)
	cfg.SuggestionTTLSec = getenvInt("DESK_SUGGESTION_TTL_SEC", cfg.SuggestionTTLSec)
	return cfg
}

func defaultCredentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deskclient-credentials.json"
	}
	return home + "/.deskclient/credentials.json"
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
