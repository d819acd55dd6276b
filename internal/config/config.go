package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arko-chat/paybridge/internal/credentials"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	appName    = "paybridge"
	configFile = "config.json"

	DefaultReturnURL = "revolut-sdk-bridge://revolut-pay"
)

type SimulatorConfig struct {
	Outcome     string `json:"outcome" env:"OUTCOME"`
	Reason      string `json:"reason" env:"REASON"`
	DelayMillis int    `json:"delay_ms" env:"DELAY_MS"`
}

type Config struct {
	ListenAddr         string          `json:"listen_addr" env:"PAYBRIDGE_LISTEN_ADDR"`
	LogLevel           string          `json:"log_level" env:"PAYBRIDGE_LOG_LEVEL"`
	LogFormat          string          `json:"log_format" env:"PAYBRIDGE_LOG_FORMAT"`
	MetricsEnabled     bool            `json:"metrics_enabled" env:"PAYBRIDGE_METRICS_ENABLED"`
	DefaultEnvironment string          `json:"default_environment" env:"PAYBRIDGE_ENVIRONMENT"`
	DefaultReturnURL   string          `json:"default_return_url" env:"PAYBRIDGE_RETURN_URL"`
	ResultCacheSize    int             `json:"result_cache_size" env:"PAYBRIDGE_RESULT_CACHE_SIZE"`
	PlatformVersion    string          `json:"platform_version" env:"PAYBRIDGE_PLATFORM_VERSION"`
	Simulator          SimulatorConfig `json:"simulator" envPrefix:"PAYBRIDGE_SIMULATOR_"`

	MerchantPublicKey string `json:"-" env:"PAYBRIDGE_MERCHANT_PUBLIC_KEY"`
	TokenSecret       string `json:"-" env:"PAYBRIDGE_TOKEN_SECRET"`
}

func Default() Config {
	return Config{
		ListenAddr:         "127.0.0.1:0",
		LogLevel:           "info",
		LogFormat:          "json",
		MetricsEnabled:     true,
		DefaultEnvironment: "sandbox",
		DefaultReturnURL:   DefaultReturnURL,
		ResultCacheSize:    128,
		Simulator: SimulatorConfig{
			Outcome:     "success",
			DelayMillis: 1000,
		},
	}
}

// Load builds the configuration from defaults, then dir/config.json, then
// PAYBRIDGE_* environment variables. An empty dir means the user config
// directory. A missing config file is written out with the defaults.
func Load(dir string) (*Config, error) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(configDir, appName)
	}

	cfg := Default()
	path := filepath.Join(dir, configFile)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
		out, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(path, out, 0600); err == nil {
			slog.Info("generated new config", "path", path)
		}
	default:
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.MerchantPublicKey == "" {
		if key, err := credentials.LoadMerchantKey(cfg.DefaultEnvironment); err == nil {
			cfg.MerchantPublicKey = key
		}
	}

	if cfg.TokenSecret == "" {
		cfg.TokenSecret, err = loadOrCreateSecret("token_secret")
		if err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// LoadDotEnv loads a .env file from the working directory if there is one.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// loadOrCreateSecret returns the keyring secret for key, generating one when
// absent. Mobile targets have no keyring; there the secret lives only for the
// process, which is fine because it only signs loopback tokens.
func loadOrCreateSecret(key string) (string, error) {
	if secret, err := credentials.LoadAppSecret(key); err == nil {
		return secret, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	secret := base64.StdEncoding.EncodeToString(raw)
	if err := credentials.StoreAppSecret(key, secret); err != nil {
		slog.Debug("keyring unavailable, using ephemeral secret", "key", key, "err", err)
	}
	return secret, nil
}
