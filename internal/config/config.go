// Package config provides configuration loading for the gateway.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Compute ComputeConfig `mapstructure:"compute"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Environment    string        `mapstructure:"environment"` // dev, staging, prod
}

// Addr returns the listen address string.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects and configures the storage driver.
type StorageConfig struct {
	// Driver is "fs" or "s3".
	Driver string `mapstructure:"driver"`

	// Root is the data directory of the fs driver.
	Root string `mapstructure:"root"`

	// Bucket and Region configure the s3 driver.
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	// PresignTTL enables redirect downloads on the s3 driver when > 0.
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

// ComputeConfig selects and configures the compute driver.
type ComputeConfig struct {
	// Driver is "docker" or "awsbatch".
	Driver string `mapstructure:"driver"`

	// DefaultImage is run by the docker driver when a job names no image.
	DefaultImage string `mapstructure:"default_image"`

	// Queue and Profiles configure the awsbatch driver. Profiles maps a
	// profile name to a registered job definition.
	Queue    string            `mapstructure:"queue"`
	Region   string            `mapstructure:"region"`
	Profiles map[string]string `mapstructure:"profiles"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Provider is "mock" or "github".
	Provider string `mapstructure:"provider"`

	JWTSecret string `mapstructure:"jwt_secret"`

	GitHubID     string `mapstructure:"github_id"`
	GitHubSecret string `mapstructure:"github_secret"`
	// CallbackURL is the externally visible URL of the OAuth callback.
	CallbackURL string `mapstructure:"callback_url"`
}

// RedisConfig holds Redis configuration. Rate limiting is disabled when
// Host is empty.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/aquila")

	v.SetEnvPrefix("AQUILA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Nested keys only resolve from the environment once bound.
	v.BindEnv("auth.jwt_secret", "AQUILA_AUTH_JWT_SECRET")
	v.BindEnv("auth.github_id", "AQUILA_AUTH_GITHUB_ID")
	v.BindEnv("auth.github_secret", "AQUILA_AUTH_GITHUB_SECRET")
	v.BindEnv("auth.callback_url", "AQUILA_AUTH_CALLBACK_URL")
	v.BindEnv("storage.bucket", "AQUILA_STORAGE_BUCKET")
	v.BindEnv("storage.region", "AQUILA_STORAGE_REGION")
	v.BindEnv("compute.queue", "AQUILA_COMPUTE_QUEUE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.environment", "dev")

	v.SetDefault("storage.driver", "fs")
	v.SetDefault("storage.root", "./data")
	v.SetDefault("storage.presign_ttl", "0s")

	v.SetDefault("compute.driver", "docker")
	v.SetDefault("compute.profiles", map[string]string{})

	v.SetDefault("auth.provider", "mock")
	v.SetDefault("auth.callback_url", "http://localhost:8080/auth/callback")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}
