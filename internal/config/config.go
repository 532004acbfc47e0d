package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageS3     = "s3"
)

// Environment variables that override file configuration.
const (
	EnvHome      = "TRACKER_HOME"
	EnvLogLevel  = "LOG_LEVEL"
	EnvStorage   = "TRACKER_STORAGE"
	EnvDataFile  = "TRACKER_DATA_FILE"
	EnvS3Bucket  = "S3_BUCKET_NAME"
	EnvS3Key     = "S3_DATA_KEY"
	EnvAuth      = "AUTH_SECRET"
	EnvBind      = "TRACKER_BIND"
	EnvPort      = "TRACKER_PORT"
	repoDirName  = ".tracker"
	fileName     = "config.json"
	defaultS3Key = "learning-items.json"
)

// Config holds application configuration.
type Config struct {
	// Storage selects the persistence backend: sqlite, file or s3.
	Storage string `json:"storage,omitempty"`

	// DataFile is the JSON document used by the file backend.
	// Empty means <baseDir>/learning-items.json.
	DataFile string `json:"data_file,omitempty"`

	// S3Bucket and S3Key locate the document used by the s3 backend.
	S3Bucket string `json:"s3_bucket,omitempty"`
	S3Key    string `json:"s3_key,omitempty"`

	// Bind and Port are the dashboard listen address.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// AuthSecret is the dashboard password. Empty disables authentication.
	// Only read from the environment.
	AuthSecret string `json:"-"`

	// LogLevel is DEBUG, INFO, WARN or ERROR.
	LogLevel string `json:"log_level,omitempty"`

	// ParseRatePerMinute and ParseBurst limit the model-backed HTTP routes per client.
	ParseRatePerMinute int `json:"parse_rate_per_minute,omitempty"`
	ParseBurst         int `json:"parse_burst,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export.
	// Paths outside <baseDir>/exports require being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage:            StorageSQLite,
		S3Key:              defaultS3Key,
		Bind:               "127.0.0.1",
		Port:               8080,
		LogLevel:           "INFO",
		ParseRatePerMinute: 20,
		ParseBurst:         5,
	}
}

// BaseDir returns TRACKER_HOME, or ~/.tracker when unset.
func BaseDir(getenv func(string) string) (string, error) {
	if dir := strings.TrimSpace(getenv(EnvHome)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, repoDirName), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, fileName))
}

// LoadWithRepo loads configuration from both the global base directory and
// the nearest .tracker/config.json above startDir, then applies environment
// overrides. Repo config takes precedence for scalars; arrays are merged.
func LoadWithRepo(globalDir, startDir string, getenv func(string) string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, fileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .tracker/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, repoDirName, fileName)
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

// ApplyEnv overrides cfg with any non-empty environment variables.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if v := env(EnvStorage); v != "" {
		cfg.Storage = strings.ToLower(v)
	}
	if v := env(EnvDataFile); v != "" {
		cfg.DataFile = v
	}
	if v := env(EnvS3Bucket); v != "" {
		cfg.S3Bucket = v
	}
	if v := env(EnvS3Key); v != "" {
		cfg.S3Key = v
	}
	if v := env(EnvBind); v != "" {
		cfg.Bind = v
	}
	if v := env(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s: %q", EnvPort, v)
		}
		cfg.Port = port
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.AuthSecret = getenv(EnvAuth)
	return cfg.Validate()
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageFile:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("storage s3 requires %s", EnvS3Bucket)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	return nil
}

// Addr returns the dashboard listen address.
func (c *Config) Addr() string {
	return c.Bind + ":" + strconv.Itoa(c.Port)
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
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
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
		Storage:            pick(overlay.Storage, base.Storage),
		DataFile:           pick(overlay.DataFile, base.DataFile),
		S3Bucket:           pick(overlay.S3Bucket, base.S3Bucket),
		S3Key:              pick(overlay.S3Key, base.S3Key),
		Bind:               pick(overlay.Bind, base.Bind),
		Port:               pick(overlay.Port, base.Port),
		AuthSecret:         pick(overlay.AuthSecret, base.AuthSecret),
		LogLevel:           pick(overlay.LogLevel, base.LogLevel),
		ParseRatePerMinute: pick(overlay.ParseRatePerMinute, base.ParseRatePerMinute),
		ParseBurst:         pick(overlay.ParseBurst, base.ParseBurst),
		DBMaxOpenConns:     pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:     pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay unless it is the zero value.
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

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
