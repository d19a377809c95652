package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values and use the CREWBOARD_ prefix with
// underscores for nesting (CREWBOARD_SERVER_PORT, CREWBOARD_REDIS_ADDR, ...).
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CREWBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a Config against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Registered empty so AutomaticEnv can see the keys during Unmarshal;
	// validation still rejects them when left unset.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.session_ttl", 24*time.Hour)

	v.SetDefault("queue.poll_interval", 250*time.Millisecond)
	v.SetDefault("queue.promote_interval", time.Second)
	v.SetDefault("queue.stalled_after", 5*time.Minute)
	v.SetDefault("queue.stalled_check_interval", time.Minute)

	v.SetDefault("email.smtp_addr", "")
	v.SetDefault("email.from", "no-reply@crewboard.local")
}
