package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL  = "https://ingest.airtake.io"
	DefaultSinkAddr = ":8080"
	DefaultTarget   = "go"

	devSinkToken = "dev-token"
)

// Store backends for the identity of the command line client.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

var (
	ErrInvalidTarget = errors.New(`AIRTAKE_TARGET must be one of "browser", "react-native", "go"`)
	ErrInvalidStore  = errors.New(`AIRTAKE_STORE must be one of "memory", "sqlite", "redis", "postgres"`)
	ErrStoreDSN      = errors.New("AIRTAKE_STORE_DSN required for this store")
)

// Config contains runtime configuration for the airtake binaries.
type Config struct {
	Token     string `yaml:"token"`
	BaseURL   string `yaml:"base_url"`
	Enabled   bool   `yaml:"enabled"`
	Autotrack bool   `yaml:"autotrack"`
	Target    string `yaml:"target"`
	Store     string `yaml:"store"`
	StoreDSN  string `yaml:"store_dsn"`
	Debug     bool   `yaml:"debug"`

	SinkAddr   string   `yaml:"sink_addr"`
	SinkTokens []string `yaml:"sink_tokens"`
}

func defaults() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Enabled:  true,
		Target:   DefaultTarget,
		Store:    StoreMemory,
		SinkAddr: DefaultSinkAddr,
	}
}

// Load reads the optional YAML file named by AIRTAKE_CONFIG and then applies
// environment overrides.
// AIRTAKE_SINK_TOKENS format: "token1,token2"
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("AIRTAKE_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	setString(&cfg.Token, "AIRTAKE_TOKEN")
	setString(&cfg.BaseURL, "AIRTAKE_BASE_URL")
	setString(&cfg.Target, "AIRTAKE_TARGET")
	setString(&cfg.Store, "AIRTAKE_STORE")
	setString(&cfg.StoreDSN, "AIRTAKE_STORE_DSN")
	setString(&cfg.SinkAddr, "AIRTAKE_SINK_ADDR")
	for key, dst := range map[string]*bool{
		"AIRTAKE_ENABLED":   &cfg.Enabled,
		"AIRTAKE_AUTOTRACK": &cfg.Autotrack,
		"AIRTAKE_DEBUG":     &cfg.Debug,
	} {
		if err := setBool(dst, key); err != nil {
			return Config{}, err
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AIRTAKE_SINK_TOKENS")); raw != "" {
		cfg.SinkTokens = nil
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.SinkTokens = append(cfg.SinkTokens, t)
			}
		}
	}
	// Local dev fallback so the sink runs out-of-the-box.
	if len(cfg.SinkTokens) == 0 {
		cfg.SinkTokens = []string{devSinkToken}
	}

	switch cfg.Target {
	case "browser", "react-native", "go":
	default:
		return Config{}, fmt.Errorf("%w, got %q", ErrInvalidTarget, cfg.Target)
	}

	switch cfg.Store {
	case StoreMemory:
	case StoreSQLite:
		if cfg.StoreDSN == "" {
			path, err := DefaultSQLitePath()
			if err != nil {
				return Config{}, err
			}
			cfg.StoreDSN = path
		}
	case StoreRedis, StorePostgres:
		if cfg.StoreDSN == "" {
			return Config{}, fmt.Errorf("%w: %s", ErrStoreDSN, cfg.Store)
		}
	default:
		return Config{}, fmt.Errorf("%w, got %q", ErrInvalidStore, cfg.Store)
	}

	return cfg, nil
}

// DefaultSQLitePath returns identity.db inside the per-OS application data
// directory. The directory is not created.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(home, "Library", "Application Support", "Airtake")
	case "windows":
		dir = filepath.Join(home, "AppData", "Roaming", "Airtake")
	default:
		dir = filepath.Join(home, ".local", "share", "airtake")
	}
	return filepath.Join(dir, "identity.db"), nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
