// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Location      LocationConfig     `mapstructure:"location"`
	Matching      MatchingConfig     `mapstructure:"matching"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	UserID      string `mapstructure:"user_id"` // the local user this instance matches for
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LocationConfig holds settings for the geolocation provider and tracker.
type LocationConfig struct {
	ProviderURL        string `mapstructure:"provider_url"`
	HighAccuracy       bool   `mapstructure:"high_accuracy"`
	AcquireTimeout     int    `mapstructure:"acquire_timeout"`      // milliseconds
	MaxCacheAge        int    `mapstructure:"max_cache_age"`        // milliseconds
	WatchInterval      int    `mapstructure:"watch_interval"`       // milliseconds
	SignificanceMeters int    `mapstructure:"significance_meters"`  // jitter suppression threshold
	WarmStartCacheTTL  int    `mapstructure:"warm_start_cache_ttl"` // seconds
}

// MatchingConfig holds settings for the periodic matching cycle.
type MatchingConfig struct {
	QueryURL        string `mapstructure:"query_url"`
	APIKey          string `mapstructure:"api_key"`
	Interval        int    `mapstructure:"interval"`          // milliseconds
	RadiusMeters    int    `mapstructure:"radius_meters"`
	QueryTimeout    int    `mapstructure:"query_timeout"`     // milliseconds
	ProfileCacheTTL int    `mapstructure:"profile_cache_ttl"` // seconds
}

// NotificationConfig holds settings for the external notification channel.
type NotificationConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AWSRegion string `mapstructure:"aws_region"`
	TopicARN  string `mapstructure:"topic_arn"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
