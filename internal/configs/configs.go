/*
Package configs is responsible for loading and validating the server configuration.

Values start from built-in defaults, are then overlaid by an optional YAML file named by
CONFIG_FILE, and finally by individual environment variables.
*/
package configs

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureDevelopmentSecret = "your_default_insecure_secret_key_change_me"

// AppConfig contains all configuration parameters required for the server to run.
type AppConfig struct {
	// General Server Settings
	Environment string `yaml:"environment"`
	Port        string `yaml:"port"`
	Backlog     int    `yaml:"backlog"`
	MaxUsers    int    `yaml:"max_users"`

	// Session Timing
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`

	// Rate Limiting
	ConnRate     float64 `yaml:"conn_rate"`
	ConnBurst    int     `yaml:"conn_burst"`
	MessageRate  float64 `yaml:"message_rate"`
	MessageBurst int     `yaml:"message_burst"`

	// OperatorRate and OperatorBurst bound mutating operator requests per IP.
	OperatorRate  float64 `yaml:"operator_rate"`
	OperatorBurst int     `yaml:"operator_burst"`

	// Operator Surface
	AdminPort      int      `yaml:"admin_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	JWTSecret      string   `yaml:"jwt_secret"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Default returns the configuration used when nothing overrides it.
func Default() *AppConfig {
	return &AppConfig{
		Environment:      "development",
		Port:             "27015",
		Backlog:          16,
		MaxUsers:         0,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ShutdownTimeout:  5 * time.Second,
		ConnRate:         1,
		ConnBurst:        5,
		MessageRate:      10,
		MessageBurst:     20,
		OperatorRate:     1,
		OperatorBurst:    10,
		AdminPort:        8080,
		AllowedOrigins:   []string{},
	}
}

// LoadConfig reads defaults, the optional CONFIG_FILE and the environment, then validates.
func LoadConfig() (*AppConfig, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load is LoadConfig with an explicit YAML file; an empty path skips the file.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeFile overlays the YAML document at path. Keys absent from the file keep their value.
func (c *AppConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

func (c *AppConfig) mergeEnv() error {
	// --- General Server Settings ---
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}

	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}

	if err := envInt("BACKLOG", &c.Backlog); err != nil {
		return err
	}

	if err := envInt("MAX_USERS", &c.MaxUsers); err != nil {
		return err
	}

	// --- Session Timing ---
	if err := envDuration("HANDSHAKE_TIMEOUT", &c.HandshakeTimeout); err != nil {
		return err
	}

	if err := envDuration("WRITE_TIMEOUT", &c.WriteTimeout); err != nil {
		return err
	}

	if err := envDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout); err != nil {
		return err
	}

	// --- Rate Limiting ---
	if err := envFloat("CONN_RATE", &c.ConnRate); err != nil {
		return err
	}

	if err := envInt("CONN_BURST", &c.ConnBurst); err != nil {
		return err
	}

	if err := envFloat("MESSAGE_RATE", &c.MessageRate); err != nil {
		return err
	}

	if err := envInt("MESSAGE_BURST", &c.MessageBurst); err != nil {
		return err
	}

	if err := envFloat("OPERATOR_RATE", &c.OperatorRate); err != nil {
		return err
	}

	if err := envInt("OPERATOR_BURST", &c.OperatorBurst); err != nil {
		return err
	}

	// --- Operator Surface ---
	if err := envInt("ADMIN_PORT", &c.AdminPort); err != nil {
		return err
	}

	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		c.AllowedOrigins = []string{}
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, trimmed)
			}
		}
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}

	return nil
}

// Validate checks ranges and fills the development secret when none was configured.
func (c *AppConfig) Validate() error {
	if _, err := net.LookupPort("tcp", c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}

	if c.Backlog <= 0 {
		return fmt.Errorf("backlog must be positive, got %d", c.Backlog)
	}

	if c.MaxUsers < 0 {
		return fmt.Errorf("max users must not be negative, got %d", c.MaxUsers)
	}

	if c.HandshakeTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("handshake, write and shutdown timeouts must be positive")
	}

	if c.ConnRate <= 0 || c.ConnBurst <= 0 {
		return fmt.Errorf("connection rate limit must be positive, got %v/%d", c.ConnRate, c.ConnBurst)
	}

	if c.MessageRate <= 0 || c.MessageBurst <= 0 {
		return fmt.Errorf("message rate limit must be positive, got %v/%d", c.MessageRate, c.MessageBurst)
	}

	if c.OperatorRate <= 0 || c.OperatorBurst <= 0 {
		return fmt.Errorf("operator rate limit must be positive, got %v/%d", c.OperatorRate, c.OperatorBurst)
	}

	if c.AdminPort < 0 || c.AdminPort > 65535 {
		return fmt.Errorf("admin port %d is outside the range 0-65535", c.AdminPort)
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required in %s environment for security", c.Environment)
		}
		c.JWTSecret = insecureDevelopmentSecret
	}

	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	*dst = parsed
	return nil
}
