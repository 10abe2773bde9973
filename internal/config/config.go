package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"travelplanner/internal/util"
)

// ConfigPath is the default config file location.
const ConfigPath = "planner.yaml"

// Storage backends for the persisted session token.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const (
	defaultAPIBaseURL  = "http://localhost:5000/api"
	defaultListenAddr  = "127.0.0.1:8080"
	defaultRedisPrefix = "travelplanner:session"
	defaultRateWindow  = "1m"
)

// StorageConfig selects where the session token is persisted.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisPrefix   string `yaml:"redisPrefix"`
	DatabaseURL   string `yaml:"databaseURL"`
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	APIBaseURL string        `yaml:"apiBaseURL"`
	APITimeout string        `yaml:"apiTimeout"`
	LogLevel   string        `yaml:"logLevel"`
	LogFormat  string        `yaml:"logFormat"`
	ListenAddr string        `yaml:"listenAddr"`
	Storage    StorageConfig `yaml:"storage"`
	// AuthRateLimit caps login/signup attempts per client per window in the
	// web shell. Zero disables throttling.
	AuthRateLimit  int    `yaml:"authRateLimit"`
	AuthRateWindow string `yaml:"authRateWindow"`
	// TrustedProxyCIDRs lists peers whose X-Forwarded-For is believed.
	// Empty trusts none.
	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`
}

// Load reads config from path (defaults to planner.yaml), applies env
// overrides and defaults, then validates. A missing file at the default
// path is not an error.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	explicit := path != ""
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	if v := os.Getenv("PLANNER_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLANNER_API_TIMEOUT"); v != "" {
		cfg.APITimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLANNER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PLANNER_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("PLANNER_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLANNER_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("PLANNER_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.RedisPassword = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("PLANNER_AUTH_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: PLANNER_AUTH_RATE_LIMIT %q is not an integer", v)
		}
		cfg.AuthRateLimit = n
	}
	if v := os.Getenv("PLANNER_AUTH_RATE_WINDOW"); v != "" {
		cfg.AuthRateWindow = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLANNER_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyDefaults(cfg *FileConfig) {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Storage.Backend == BackendFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultSessionPath()
	}
	if cfg.Storage.RedisPrefix == "" {
		cfg.Storage.RedisPrefix = defaultRedisPrefix
	}
	if cfg.AuthRateWindow == "" {
		cfg.AuthRateWindow = defaultRateWindow
	}
}

func validateConfig(cfg FileConfig) error {
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: apiBaseURL %q must be an absolute URL", cfg.APIBaseURL)
	}
	if _, err := ParseAPITimeout(cfg.APITimeout); err != nil {
		return err
	}
	if cfg.AuthRateLimit < 0 {
		return errors.New("config: authRateLimit must be >= 0")
	}
	if _, err := ParseRateWindow(cfg.AuthRateWindow); err != nil {
		return err
	}
	if _, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs); err != nil {
		return fmt.Errorf("config: trustedProxyCidrs: %w", err)
	}
	switch cfg.Storage.Backend {
	case BackendFile:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return errors.New("config: storage.path is required for the file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
			return errors.New("config: storage.redisAddr is required for the redis backend (or REDIS_ADDR)")
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Storage.DatabaseURL) == "" {
			return errors.New("config: storage.databaseURL is required for the postgres backend (or DATABASE_URL)")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unsupported storage.backend %q", cfg.Storage.Backend)
	}
	return nil
}

// ParseAPITimeout parses the optional API client timeout. Empty means none.
func ParseAPITimeout(value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid apiTimeout duration: %w", err)
	}
	if dur < 0 {
		return 0, errors.New("invalid apiTimeout duration: must be >= 0")
	}
	return dur, nil
}

// MinRateWindow is the smallest throttling window the limiters support.
const MinRateWindow = time.Millisecond

// ParseRateWindow parses the auth throttling window; it must be at least MinRateWindow.
func ParseRateWindow(value string) (time.Duration, error) {
	dur, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid authRateWindow duration: %w", err)
	}
	if dur < MinRateWindow {
		return 0, fmt.Errorf("invalid authRateWindow duration: must be at least %s", MinRateWindow)
	}
	return dur, nil
}

// DefaultSessionPath returns $HOME/.travelplanner/session.yaml, falling back
// to the working directory when no home is known.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".travelplanner", "session.yaml")
	}
	return filepath.Join(home, ".travelplanner", "session.yaml")
}
