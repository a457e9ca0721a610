package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
// Config is loaded from environment variables, optionally on top of a YAML file named by CONFIG_FILE
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type DatabaseConfig struct {
	Driver          string // mysql or postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	EnsureSchema    bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Load reads configuration from environment variables
//
// if CONFIG_FILE is set, values in that YAML file replace the built-in defaults (environment variables still win)
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", orString(file.Server.Port, "8080")),
			Host:            getEnv("HOST", orString(file.Server.Host, "0.0.0.0")),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", orInt(file.Server.ReadTimeout, 15)),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", orInt(file.Server.WriteTimeout, 15)),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", orInt(file.Server.ShutdownTimeout, 30)),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", orString(file.Database.Driver, DriverMySQL))),
			DSN:             getEnv("DB_DSN", file.Database.DSN),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", orInt(file.Database.MaxOpenConns, 25)),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", orInt(file.Database.MaxIdleConns, 5)),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", orDuration(file.Database.ConnMaxLifetime, 5*time.Minute)),
			ConnectRetries:  getEnvAsInt("DB_CONNECT_RETRIES", orInt(file.Database.ConnectRetries, 5)),
			EnsureSchema:    getEnvAsBool("DB_ENSURE_SCHEMA", file.Database.EnsureSchema),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", orSlice(file.CORS.AllowedOrigins, []string{"*"})),
		},
		LogLevel: getEnv("LOG_LEVEL", orString(file.LogLevel, "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// fileConfig is the YAML layout of CONFIG_FILE (zero values mean "not set")
type fileConfig struct {
	Server struct {
		Port            string `yaml:"port"`
		Host            string `yaml:"host"`
		ReadTimeout     int    `yaml:"read_timeout"`
		WriteTimeout    int    `yaml:"write_timeout"`
		ShutdownTimeout int    `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver          string        `yaml:"driver"`
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		ConnectRetries  int           `yaml:"connect_retries"`
		EnsureSchema    bool          `yaml:"ensure_schema"`
	} `yaml:"database"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	LogLevel string `yaml:"log_level"`
}

func loadFile(path string) (*fileConfig, error) {
	result := &fileConfig{}
	if path == "" {
		return result, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return result, nil
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}

func orSlice(v, def []string) []string {
	if len(v) > 0 {
		return v
	}
	return def
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Driver != DriverMySQL && c.Database.Driver != DriverPostgres {
		return fmt.Errorf("invalid database driver: %s (must be mysql or postgres)", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
