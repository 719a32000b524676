// Package config loads the service settings from a YAML file and lets
// environment variables with the same names override them.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is relative to the repository root, where the service is run from.
const DefaultPath = "internal/salary/config/config.yaml"

type Config struct {
	GRPCPort     int      `yaml:"GRPC_PORT" env:"GRPC_PORT"`
	HTTPPort     int      `yaml:"HTTP_PORT" env:"HTTP_PORT"`
	DBDriver     string   `yaml:"DB_DRIVER" env:"DB_DRIVER"`
	DBHost       string   `yaml:"DB_HOST" env:"DB_HOST"`
	DBPort       int      `yaml:"DB_PORT" env:"DB_PORT"`
	DBUser       string   `yaml:"DB_USER" env:"DB_USER"`
	DBPassword   string   `yaml:"DB_PASSWORD" env:"DB_PASSWORD"`
	DBName       string   `yaml:"DB_NAME" env:"DB_NAME"`
	DBSSLMode    string   `yaml:"DB_SSLMODE" env:"DB_SSLMODE"`
	KafkaBrokers []string `yaml:"KAFKA_BROKERS" env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string   `yaml:"TOPIC" env:"TOPIC"`
	AuditGroupID string   `yaml:"AUDIT_GROUP_ID" env:"AUDIT_GROUP_ID"`
	JWTSecret    string   `yaml:"JWT_SECRET" env:"JWT_SECRET"`
}

// Load reads path, then applies environment overrides. A missing file is an
// error; an unset variable leaves the file value in place.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.GRPCPort <= 0 || c.HTTPPort <= 0:
		return fmt.Errorf("config: GRPC_PORT and HTTP_PORT must be positive")
	case c.JWTSecret == "":
		return fmt.Errorf("config: JWT_SECRET is required")
	case len(c.KafkaBrokers) == 0 || c.Topic == "":
		return fmt.Errorf("config: KAFKA_BROKERS and TOPIC are required")
	}
	return nil
}
