package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	// StoreBackend selects the durable store: "sqlite" (default, local file)
	// or "redis" (remote document store at RedisAddr).
	StoreBackend string `json:"store_backend,omitempty"`

	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	// RedisPrefix is prepended to every key so several apps can share one Redis.
	RedisPrefix string `json:"redis_prefix,omitempty"`

	// GeminiAPIKey enables the extraction service. Usually supplied via GEMINI_API_KEY.
	GeminiAPIKey  string `json:"gemini_api_key,omitempty"`
	GeminiModel   string `json:"gemini_model,omitempty"`
	GeminiBaseURL string `json:"gemini_base_url,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside <base>/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// CORSOrigins lists browser origins allowed to call the HTTP API.
	CORSOrigins []string `json:"cors_origins,omitempty"`

	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// MaxUploadMB caps multipart uploads (import files, templates, images).
	MaxUploadMB int `json:"max_upload_mb,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// Object storage for card and document images. Disabled when MinioEndpoint is empty.
	MinioEndpoint  string `json:"minio_endpoint,omitempty"`
	MinioAccessKey string `json:"minio_access_key,omitempty"`
	MinioSecretKey string `json:"minio_secret_key,omitempty"`
	MinioBucket    string `json:"minio_bucket,omitempty"`
	MinioUseSSL    bool   `json:"minio_use_ssl,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes excludes every MCP tool of a record type ("contact", "policy", "column").
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StoreBackend: BackendSQLite,
		RedisPrefix:  "meishi:",
		GeminiModel:  "gemini-2.0-flash",
		Bind:         "127.0.0.1",
		Port:         8080,
		MaxUploadMB:  10,
		LogLevel:     "info",
		MinioBucket:  "meishi",
	}
}

// DefaultBaseDir returns the data directory, $XDG_DATA_HOME/meishi.
func DefaultBaseDir() string {
	return filepath.Join(xdg.DataHome, "meishi")
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the base dir and the nearest repo (.meishi) directory.
// Repo config is found by walking upward from startDir to find the nearest .meishi/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .meishi/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".meishi", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		StoreBackend:   pick(overlay.StoreBackend, base.StoreBackend),
		RedisAddr:      pick(overlay.RedisAddr, base.RedisAddr),
		RedisPassword:  pick(overlay.RedisPassword, base.RedisPassword),
		RedisPrefix:    pick(overlay.RedisPrefix, base.RedisPrefix),
		GeminiAPIKey:   pick(overlay.GeminiAPIKey, base.GeminiAPIKey),
		GeminiModel:    pick(overlay.GeminiModel, base.GeminiModel),
		GeminiBaseURL:  pick(overlay.GeminiBaseURL, base.GeminiBaseURL),
		Bind:           pick(overlay.Bind, base.Bind),
		Port:           pick(overlay.Port, base.Port),
		MaxUploadMB:    pick(overlay.MaxUploadMB, base.MaxUploadMB),
		LogLevel:       pick(overlay.LogLevel, base.LogLevel),
		MinioEndpoint:  pick(overlay.MinioEndpoint, base.MinioEndpoint),
		MinioAccessKey: pick(overlay.MinioAccessKey, base.MinioAccessKey),
		MinioSecretKey: pick(overlay.MinioSecretKey, base.MinioSecretKey),
		MinioBucket:    pick(overlay.MinioBucket, base.MinioBucket),
		DBMaxOpenConns: pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.MinioUseSSL = base.MinioUseSSL || overlay.MinioUseSSL

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.CORSOrigins = mergeStringSlice(base.CORSOrigins, overlay.CORSOrigins)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// ApplyEnv overlays environment variables onto cfg. lookup is usually os.LookupEnv.
//
//	GEMINI_API_KEY, MEISHI_STORE_BACKEND, MEISHI_REDIS_ADDR, MEISHI_REDIS_PASSWORD,
//	MEISHI_MINIO_ENDPOINT, MEISHI_MINIO_ACCESS_KEY, MEISHI_MINIO_SECRET_KEY,
//	MEISHI_MINIO_BUCKET, MEISHI_LOG_LEVEL
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, name string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	set(&cfg.StoreBackend, "MEISHI_STORE_BACKEND")
	set(&cfg.RedisAddr, "MEISHI_REDIS_ADDR")
	set(&cfg.RedisPassword, "MEISHI_REDIS_PASSWORD")
	set(&cfg.MinioEndpoint, "MEISHI_MINIO_ENDPOINT")
	set(&cfg.MinioAccessKey, "MEISHI_MINIO_ACCESS_KEY")
	set(&cfg.MinioSecretKey, "MEISHI_MINIO_SECRET_KEY")
	set(&cfg.MinioBucket, "MEISHI_MINIO_BUCKET")
	set(&cfg.LogLevel, "MEISHI_LOG_LEVEL")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("store_backend %q requires redis_addr", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown store_backend %q (want %s or %s)", c.StoreBackend, BackendSQLite, BackendRedis)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
