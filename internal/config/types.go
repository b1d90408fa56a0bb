package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the console configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Database      DatabaseConfig      `yaml:"database" json:"database"`
	Logger        LoggerConfig        `yaml:"logger" json:"logger"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" json:"elasticsearch"`
	Preview       PreviewConfig       `yaml:"preview" json:"preview"`
	Catalog       CatalogConfig       `yaml:"catalog" json:"catalog"`
}

type ServerConfig struct {
	HTTPPort       int     `yaml:"http_port" json:"http_port"`
	Host           string  `yaml:"host" json:"host"`
	RateLimit      float64 `yaml:"rate_limit" json:"rate_limit"`           // requests per second per client IP
	RateBurst      int     `yaml:"rate_burst" json:"rate_burst"`
	RequestTimeout int     `yaml:"request_timeout" json:"request_timeout"` // seconds
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" json:"driver"` // sqlite, mysql, postgres or memory
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	DBName   string `yaml:"dbname" json:"dbname"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Output string `yaml:"output" json:"output"` // stdout, stderr, or file path
	// AuditDir receives the daily JSONL journal of rule changes, empty disables it.
	AuditDir string `yaml:"audit_dir" json:"audit_dir"`
}

type ElasticsearchConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Addresses   []string `yaml:"addresses" json:"addresses"`
	Username    string   `yaml:"username" json:"username"`
	Password    string   `yaml:"password" json:"-"`
	IndexPrefix string   `yaml:"index_prefix" json:"index_prefix"` // audit index prefix, e.g. "notification-audit"
}

// PreviewConfig holds the defaults of the template preview.
type PreviewConfig struct {
	Theme     string `yaml:"theme" json:"theme"` // light or dark
	EmailFrom string `yaml:"email_from" json:"email_from"`
}

type CatalogConfig struct {
	Path string `yaml:"path" json:"path"` // YAML catalog file, empty disables the picker data
}

// LoadFromFile reads a YAML config file and fills in defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&config)

	return &config, nil
}

// SaveToFile writes config as YAML.
func SaveToFile(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load builds the config from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       getEnvInt("HTTP_PORT", 8080),
			Host:           getEnv("HOST", "0.0.0.0"),
			RateLimit:      getEnvFloat("RATE_LIMIT", 20),
			RateBurst:      getEnvInt("RATE_BURST", 40),
			RequestTimeout: getEnvInt("REQUEST_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "notifyconsole.db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Output:   getEnv("LOG_OUTPUT", "stdout"),
			AuditDir: getEnv("AUDIT_LOG_DIR", ""),
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:     getEnvBool("ES_ENABLED", false),
			Addresses:   getEnvSlice("ES_ADDRESSES", []string{"http://localhost:9200"}),
			Username:    getEnv("ES_USERNAME", ""),
			Password:    getEnv("ES_PASSWORD", ""),
			IndexPrefix: getEnv("ES_INDEX_PREFIX", "notification-audit"),
		},
		Preview: PreviewConfig{
			Theme:     getEnv("PREVIEW_THEME", "light"),
			EmailFrom: getEnv("PREVIEW_EMAIL_FROM", "notificaciones@grc.local"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
	}
}

func setDefaults(config *Config) {
	if config.Server.HTTPPort == 0 {
		config.Server.HTTPPort = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.RateLimit == 0 {
		config.Server.RateLimit = 20
	}
	if config.Server.RateBurst == 0 {
		config.Server.RateBurst = 40
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 30
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "sqlite"
	}
	if config.Database.DBName == "" && config.Database.Driver == "sqlite" {
		config.Database.DBName = "notifyconsole.db"
	}
	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Output == "" {
		config.Logger.Output = "stdout"
	}
	if config.Elasticsearch.IndexPrefix == "" {
		config.Elasticsearch.IndexPrefix = "notification-audit"
	}
	if config.Preview.Theme == "" {
		config.Preview.Theme = "light"
	}
	if config.Preview.EmailFrom == "" {
		config.Preview.EmailFrom = "notificaciones@grc.local"
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var intVal int
		if _, err := fmt.Sscanf(val, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		var f float64
		if _, err := fmt.Sscanf(val, "%g", &f); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// getEnvSlice reads a comma separated list.
func getEnvSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		if result := splitAndTrim(val, ","); len(result) > 0 {
			return result
		}
	}
	return defaultVal
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.Server.RequestTimeout < 1 {
		return fmt.Errorf("request timeout must be at least 1 second")
	}

	validDrivers := map[string]bool{
		"sqlite":   true,
		"mysql":    true,
		"postgres": true,
		"memory":   true,
	}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host cannot be empty for %s", c.Database.Driver)
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user cannot be empty for %s", c.Database.Driver)
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name cannot be empty")
		}
	case "sqlite":
		if c.Database.DBName == "" {
			return fmt.Errorf("database file path cannot be empty for sqlite")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	if c.Elasticsearch.Enabled && len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch addresses cannot be empty when enabled")
	}

	if c.Preview.Theme != "light" && c.Preview.Theme != "dark" {
		return fmt.Errorf("invalid preview theme: %s", c.Preview.Theme)
	}

	return nil
}
