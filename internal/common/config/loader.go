// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	// Best effort; system environment wins when no .env is present.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like MATCHING_RADIUS_METERS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, e.g. config.production.yaml.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "nearby-engine"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}

	if cfg.Location.AcquireTimeout == 0 {
		cfg.Location.AcquireTimeout = 10000
	}
	if cfg.Location.MaxCacheAge == 0 {
		cfg.Location.MaxCacheAge = 60000
	}
	if cfg.Location.WatchInterval == 0 {
		cfg.Location.WatchInterval = 5000
	}
	if cfg.Location.SignificanceMeters == 0 {
		cfg.Location.SignificanceMeters = 10
	}
	if cfg.Location.WarmStartCacheTTL == 0 {
		cfg.Location.WarmStartCacheTTL = 86400
	}

	if cfg.Matching.Interval == 0 {
		cfg.Matching.Interval = 10000
	}
	if cfg.Matching.RadiusMeters == 0 {
		cfg.Matching.RadiusMeters = 5000
	}
	if cfg.Matching.QueryTimeout == 0 {
		cfg.Matching.QueryTimeout = 15000
	}
	if cfg.Matching.ProfileCacheTTL == 0 {
		cfg.Matching.ProfileCacheTTL = 600
	}

	if cfg.Notifications.AWSRegion == "" {
		cfg.Notifications.AWSRegion = "us-east-1"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.App.UserID == "" {
		return fmt.Errorf("app.user_id is required")
	}
	if cfg.Matching.QueryURL == "" {
		return fmt.Errorf("matching.query_url is required")
	}
	if cfg.Location.ProviderURL == "" {
		return fmt.Errorf("location.provider_url is required")
	}
	if cfg.Matching.RadiusMeters < 0 {
		return fmt.Errorf("matching.radius_meters must be positive")
	}
	if cfg.Location.SignificanceMeters < 0 {
		return fmt.Errorf("location.significance_meters must be positive")
	}
	if cfg.Notifications.Enabled && cfg.Notifications.TopicARN == "" {
		return fmt.Errorf("notifications.topic_arn is required when notifications are enabled")
	}
	return nil
}
