// Package config loads runtime settings from the environment and .env files.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
)

// Environment keys.
const (
	KeyTelegramToken   = "TELEGRAM_TOKEN"
	KeyStoreURL        = "STORE_URL"
	KeyProfileStoreURL = "PROFILE_STORE_URL"
	KeySessionTTL      = "SESSION_TTL"
	KeyKeyPrefix       = "KEY_PREFIX"
	KeyEncryptionKey   = "ENCRYPTION_KEY"
	KeyFallbackKeys    = "ENCRYPTION_FALLBACK_KEYS"
	KeyLockTTL         = "LOCK_TTL"
	KeyDistributedLock = "DISTRIBUTED_LOCK"
	KeyMaxInputSize    = "MAX_INPUT_SIZE"
	KeyPromptsFile     = "PROMPTS_FILE"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
	KeyMetricsAddr     = "METRICS_ADDR"
	KeyHTTPAddr        = "HTTP_ADDR"
)

// DefaultEnvFile is read when it exists and no file was named explicitly.
const DefaultEnvFile = ".env"

// Config is the process configuration. Flags never reach the core; this is
// the only place settings come from.
type Config struct {
	TelegramToken   string        `mapstructure:"TELEGRAM_TOKEN"`
	StoreURL        string        `mapstructure:"STORE_URL"`
	ProfileStoreURL string        `mapstructure:"PROFILE_STORE_URL"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`
	KeyPrefix       string        `mapstructure:"KEY_PREFIX"`
	EncryptionKey   string        `mapstructure:"ENCRYPTION_KEY"`
	FallbackKeys    []string      `mapstructure:"ENCRYPTION_FALLBACK_KEYS"`
	LockTTL         time.Duration `mapstructure:"LOCK_TTL"`
	DistributedLock bool          `mapstructure:"DISTRIBUTED_LOCK"`
	MaxInputSize    int           `mapstructure:"MAX_INPUT_SIZE"`
	PromptsFile     string        `mapstructure:"PROMPTS_FILE"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFormat       string        `mapstructure:"LOG_FORMAT"`
	MetricsAddr     string        `mapstructure:"METRICS_ADDR"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() map[string]string {
	return map[string]string{
		KeyStoreURL:     "redis://localhost:6379/0",
		KeyLockTTL:      "30s",
		KeyMaxInputSize: "4096",
		KeyLogLevel:     "info",
		KeyLogFormat:    "text",
		KeyMetricsAddr:  ":2112",
		KeyHTTPAddr:     ":8080",
	}
}

// MissingError reports required settings that are absent.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// Load merges defaults, the given .env files and the process environment,
// in increasing order of precedence. With no files, DefaultEnvFile is read
// if present. Named files must exist.
func Load(envFiles ...string) (*Config, error) {
	values := Defaults()

	if len(envFiles) == 0 {
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			envFiles = []string{DefaultEnvFile}
		}
	}
	for _, path := range envFiles {
		fileValues, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", path, err)
		}
		merge(values, fileValues)
	}

	env := make(map[string]string)
	for _, key := range keys() {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	merge(values, env)

	return Decode(values)
}

// Decode converts raw string settings into a Config.
func Decode(values map[string]string) (*Config, error) {
	input := make(map[string]any, len(values))
	for k, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			input[k] = v
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if _, _, err := cfg.EncryptionKeys(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireTelegram fails with a MissingError when the bot token is absent.
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return &MissingError{Keys: []string{KeyTelegramToken}}
	}
	return nil
}

// ProfileURL is where completed profiles go. It defaults to StoreURL.
func (c *Config) ProfileURL() string {
	if c.ProfileStoreURL != "" {
		return c.ProfileStoreURL
	}
	return c.StoreURL
}

// EncryptionKeys decodes the base64 keys. A nil active key means encryption is off.
func (c *Config) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		if len(c.FallbackKeys) > 0 {
			return nil, nil, errors.New(KeyFallbackKeys + " requires " + KeyEncryptionKey)
		}
		return nil, nil, nil
	}
	if active, err = decodeKey(KeyEncryptionKey, c.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for _, raw := range c.FallbackKeys {
		key, err := decodeKey(KeyFallbackKeys, strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, raw string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s: key must be 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

// keys lists every environment key Config understands.
func keys() []string {
	t := reflect.TypeOf(Config{})
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		out = append(out, t.Field(i).Tag.Get("mapstructure"))
	}
	return out
}
