package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/melihmucuk/leash/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "LEASH_CONFIG"
	EnvLogLevel   = "LEASH_LOG_LEVEL"
	EnvAuditPath  = "LEASH_AUDIT_DB"
	EnvAudit      = "LEASH_AUDIT"
)

// Config is the user-level leash configuration. It is never read from the
// project being guarded.
type Config struct {
	AllowPaths    []string `yaml:"allow_paths"`
	ExtraCommands []string `yaml:"extra_commands"`
	Audit         *bool    `yaml:"audit"`
	AuditDB       string   `yaml:"audit_db"`
	LogLevel      string   `yaml:"log_level"`

	Path string `yaml:"-"`
}

func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory failed: %w", err)
	}
	return filepath.Join(homeDir, ".config", "leash", "config.yaml"), nil
}

// ResolvePath picks the config file: explicit path, then LEASH_CONFIG, then
// the default location.
func ResolvePath(path string) (string, error) {
	if configPath := strings.TrimSpace(path); configPath != "" {
		return configPath, nil
	}
	if configPath := strings.TrimSpace(os.Getenv(EnvConfigPath)); configPath != "" {
		return configPath, nil
	}
	return DefaultPath()
}

// Load reads the config at path. A missing file yields an empty config.
func Load(path string) (Config, error) {
	configPath, err := ResolvePath(path)
	if err != nil {
		return Config{}, err
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{Path: configPath}, nil
		}
		return Config{}, fmt.Errorf("read config failed: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", configPath, err)
	}
	config.Path = configPath
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (config Config) Validate() error {
	for _, entry := range config.AllowPaths {
		pattern := strings.TrimSpace(entry)
		if pattern == "" {
			return fmt.Errorf("allow_paths: empty entry")
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("allow_paths: invalid pattern %q: %w", pattern, err)
		}
	}
	for _, name := range config.ExtraCommands {
		normalizedName := strings.TrimSpace(name)
		if normalizedName == "" || strings.ContainsAny(normalizedName, " \t/") {
			return fmt.Errorf("extra_commands: invalid command name %q", name)
		}
	}
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// LogLevelName returns the configured level name, LEASH_LOG_LEVEL first.
func (config Config) LogLevelName() string {
	return ResolveString(EnvLogLevel, config.LogLevel)
}

// AuditEnabled reports whether blocked decisions are recorded. Defaults to
// true.
func (config Config) AuditEnabled() bool {
	fallback := true
	if config.Audit != nil {
		fallback = *config.Audit
	}
	return ResolveBool(EnvAudit, fallback)
}

// AuditPath returns the audit database location with ~ expanded. An empty
// result means the default location.
func (config Config) AuditPath() string {
	return expandHome(ResolveString(EnvAuditPath, config.AuditDB))
}

func ResolveString(key string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(fallback)
}

func ResolveBool(key string, fallback bool) bool {
	value, err := parseBool(os.Getenv(key), fallback)
	if err != nil {
		return fallback
	}
	return value
}

func parseBool(raw string, fallback bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, fmt.Errorf("empty value")
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return fallback, fmt.Errorf("invalid boolean %q", raw)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
