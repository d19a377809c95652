package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Email    EmailConfig    `mapstructure:"email"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// RedisConfig locates the Redis instance backing the cache and job queues.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"   validate:"gte=0"`
}

// AuthConfig contains authentication and session settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"  validate:"required,min=32"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"   validate:"required"`
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"required"`
}

// QueueConfig tunes the job dispatcher. Per-queue concurrency and retry
// policy are declared in code (the queue set is static); only the shared
// timing knobs live in configuration.
type QueueConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval"          validate:"required"`
	PromoteInterval      time.Duration `mapstructure:"promote_interval"       validate:"required"`
	StalledAfter         time.Duration `mapstructure:"stalled_after"          validate:"required"`
	StalledCheckInterval time.Duration `mapstructure:"stalled_check_interval" validate:"required"`
}

// EmailConfig locates the outbound SMTP relay. An empty SMTPAddr switches
// the server to the log-only sender, which is the development default.
type EmailConfig struct {
	SMTPAddr string `mapstructure:"smtp_addr"`
	From     string `mapstructure:"from"`
}

