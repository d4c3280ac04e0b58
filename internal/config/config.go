package config

import (
	"fmt"
	"os"
	"time"

	"github.com/skybox-io/skybox/internal/services"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration, loaded from YAML with
// environment overrides for secrets.
type Config struct {
	Server  ServerConfig               `yaml:"server"`
	MongoDB MongoConfig                `yaml:"mongodb"`
	Redis   RedisConfig                `yaml:"redis"`
	JWT     JWTConfig                  `yaml:"jwt"`
	Objects services.ObjectStoreConfig `yaml:"objects"`
	Log     LogConfig                  `yaml:"log"`
	Sweep   SweepConfig                `yaml:"sweep"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds token settings
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// SweepConfig holds retention sweep settings
type SweepConfig struct {
	// Interval between in-process sweep runs; zero disables the ticker
	// so an external cron can drive `skyboxd sweep` instead.
	Interval time.Duration `yaml:"interval"`
}

// Default returns a configuration suitable for local development
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		MongoDB: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "skybox",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		JWT: JWTConfig{
			Issuer:     "skybox",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Objects: services.ObjectStoreConfig{
			Provider:  "s3",
			Region:    "us-east-1",
			URLExpiry: 900,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Sweep: SweepConfig{
			Interval: 24 * time.Hour,
		},
	}
}

// Load reads configuration from a YAML file, then applies environment
// overrides. An empty path returns defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv pulls secrets from the environment so they never have to live
// in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("SKYBOX_MONGO_URI"); v != "" {
		c.MongoDB.URI = v
	}
	if v := os.Getenv("SKYBOX_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SKYBOX_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("SKYBOX_JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("SKYBOX_S3_ACCESS_KEY"); v != "" {
		c.Objects.AccessKey = v
	}
	if v := os.Getenv("SKYBOX_S3_SECRET_KEY"); v != "" {
		c.Objects.SecretKey = v
	}
	if v := os.Getenv("SKYBOX_S3_BUCKET"); v != "" {
		c.Objects.Bucket = v
	}
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (set jwt.secret or SKYBOX_JWT_SECRET)")
	}
	if c.MongoDB.Database == "" {
		return fmt.Errorf("mongodb database name is required")
	}
	return nil
}
