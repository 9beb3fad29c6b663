package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for webmbot.
type Config struct {
	General     GeneralConfig     `json:"general"`
	Telegram    TelegramConfig    `json:"telegram"`
	Relay       RelayConfig       `json:"relay"`
	Transcoder  TranscoderConfig  `json:"transcoder"`
	Dispatch    DispatchConfig    `json:"dispatch"`
	Subscribers SubscribersConfig `json:"subscribers"`
	Daily       DailyConfig       `json:"daily"`
	Metrics     MetricsConfig     `json:"metrics"`
}

type GeneralConfig struct {
	TempDir   string `json:"tempDir"`   // downloads and transcoder output
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"` // "text" | "json"
	LogFile   string `json:"logFile,omitempty"`
}

type TelegramConfig struct {
	Token              string        `json:"token"`
	AllowChats         FlexInt64List `json:"allowChats,omitempty"` // empty = every chat
	PollTimeoutSeconds int           `json:"pollTimeoutSeconds"`
}

type RelayConfig struct {
	TargetMimeType string `json:"targetMimeType"`
	OutputSuffix   string `json:"outputSuffix"`
	InputExtension string `json:"inputExtension"`
}

type TranscoderConfig struct {
	Binary         string `json:"binary"`
	Workers        int    `json:"workers"`
	TimeoutSeconds int    `json:"timeoutSeconds"` // 0 = no limit
}

type DispatchConfig struct {
	MaxConcurrent int `json:"maxConcurrent"`
	BufferSize    int `json:"bufferSize"`
}

type SubscribersConfig struct {
	Enabled bool   `json:"enabled"`
	Backend string `json:"backend"` // "sqlite" | "file"
	Path    string `json:"path"`
}

type DailyConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	Timezone string `json:"timezone,omitempty"`
	Source   string `json:"source"` // "static" | "leetcode"
	Message  string `json:"message,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
	Path    string `json:"path"`
}

// FlexInt64List is a []int64 that unmarshals from arrays mixing numbers and
// numeric strings (e.g. [-100123, "456"]).
type FlexInt64List []int64

func (f *FlexInt64List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]int64, 0, len(raw))
	for _, item := range raw {
		var n int64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, n)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return fmt.Errorf("chat id %s: not a number or string", item)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("chat id %q: %w", s, err)
		}
		result = append(result, n)
	}
	*f = result
	return nil
}

// Contains reports whether id is listed.
func (f FlexInt64List) Contains(id int64) bool {
	for _, v := range f {
		if v == id {
			return true
		}
	}
	return false
}

// DefaultConfigDir returns the default config directory (~/.webmbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".webmbot"
	}
	return filepath.Join(home, ".webmbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(ExpandPath(path)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the config at path. A missing file yields Defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	default:
		// Substitute environment variables: ${VAR} and ${VAR:-default}
		data = []byte(ExpandEnvVars(string(data)))
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	ApplyEnv(cfg)
	cfg.General.TempDir = ExpandPath(cfg.General.TempDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Subscribers.Path = ExpandPath(cfg.Subscribers.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// decode fills cfg from JSON or YAML. YAML is normalised through JSON so both
// formats share the json tags and custom unmarshalers.
func decode(path string, data []byte, cfg *Config) error {
	if !isYAML(path) {
		return json.Unmarshal(data, cfg)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	js, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(js, cfg)
}

// ApplyEnv overrides file values with well-known environment variables.
func ApplyEnv(cfg *Config) {
	for _, key := range []string{"TELOXIDE_TOKEN", "TELEGRAM_BOT_TOKEN"} {
		if v := os.Getenv(key); v != "" {
			cfg.Telegram.Token = v
			break
		}
	}
	if v := os.Getenv("WEBMBOT_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = marshalYAML(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func marshalYAML(cfg *Config) ([]byte, error) {
	js, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, err
	}
	return yaml.Marshal(m)
}

// Validate checks that the config has valid values. The bot token is not
// required here so that config commands work before one is configured.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}
	if cfg.General.TempDir == "" {
		errs = append(errs, "general.tempDir is required")
	}

	if cfg.Telegram.PollTimeoutSeconds < 0 || cfg.Telegram.PollTimeoutSeconds > 600 {
		errs = append(errs, "telegram.pollTimeoutSeconds must be between 0 and 600")
	}

	if mt, _, err := mime.ParseMediaType(cfg.Relay.TargetMimeType); err != nil || !strings.Contains(mt, "/") {
		errs = append(errs, "relay.targetMimeType must look like type/subtype")
	}
	if cfg.Relay.OutputSuffix == "" {
		errs = append(errs, "relay.outputSuffix is required")
	}

	if cfg.Transcoder.Binary == "" {
		errs = append(errs, "transcoder.binary is required")
	}
	if cfg.Transcoder.Workers < 1 || cfg.Transcoder.Workers > 64 {
		errs = append(errs, "transcoder.workers must be between 1 and 64")
	}
	if cfg.Transcoder.TimeoutSeconds < 0 {
		errs = append(errs, "transcoder.timeoutSeconds must be >= 0")
	}

	if cfg.Dispatch.MaxConcurrent < 1 || cfg.Dispatch.MaxConcurrent > 1000 {
		errs = append(errs, "dispatch.maxConcurrent must be between 1 and 1000")
	}
	if cfg.Dispatch.BufferSize < 1 {
		errs = append(errs, "dispatch.bufferSize must be >= 1")
	}

	if cfg.Subscribers.Enabled {
		switch cfg.Subscribers.Backend {
		case "sqlite", "file":
		default:
			errs = append(errs, "subscribers.backend must be one of: sqlite, file")
		}
		if cfg.Subscribers.Path == "" {
			errs = append(errs, "subscribers.path is required")
		}
	}

	if cfg.Daily.Enabled {
		if !cfg.Subscribers.Enabled {
			errs = append(errs, "daily.enabled requires subscribers.enabled")
		}
		switch cfg.Daily.Source {
		case "leetcode":
		case "static":
			if strings.TrimSpace(cfg.Daily.Message) == "" {
				errs = append(errs, "daily.message is required for the static source")
			}
		default:
			errs = append(errs, "daily.source must be one of: static, leetcode")
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			errs = append(errs, "metrics.listen is required when metrics are enabled")
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with /")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
