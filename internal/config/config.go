package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the sync service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	ImportLockTTL    time.Duration
	ImportRateMax    int
	ImportRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Classync API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("import.lock_ttl", "10m")
	v.SetDefault("import.rate_max", 5)
	v.SetDefault("import.rate_window", "1m")

	lockTTL, err := time.ParseDuration(v.GetString("import.lock_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid import lock ttl: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("import.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid import rate window: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		ImportLockTTL:    lockTTL,
		ImportRateMax:    v.GetInt("import.rate_max"),
		ImportRateWindow: rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ImportRateMax <= 0 {
		cfg.ImportRateMax = 5
	}

	return cfg, nil
}
