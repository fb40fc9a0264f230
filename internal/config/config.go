package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	Provider     string        `yaml:"provider"` // openai | edge | lambda
	APIKey       string        `yaml:"apiKey"`
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"baseURL"`
	FunctionName string        `yaml:"functionName"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxTokens    int           `yaml:"maxTokens"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
	MaxDelay   time.Duration `yaml:"maxDelay"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql | postgres | "" (history disabled)
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`

	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type MinioConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"useSSL"`
}

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Engine   EngineConfig   `yaml:"engine"`
	Retry    RetryConfig    `yaml:"retry"`
	Database DatabaseConfig `yaml:"database"`
	Minio    MinioConfig    `yaml:"minio"`

	Redis struct {
		URL    string `yaml:"url"`
		Stream string `yaml:"stream"`
	} `yaml:"redis"`

	Auth struct {
		// APIKeys maps a tenant to its API key.
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"` // tokens per minute
	} `yaml:"rateLimit"`

	Limits struct {
		MaxCodeBytes int64 `yaml:"maxCodeBytes"`
	} `yaml:"limits"`
}

// Default berisi nilai bawaan kalau config.yaml tidak ada
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Engine = EngineConfig{Provider: "openai", Model: "gpt-4o-mini", Timeout: 60 * time.Second, MaxTokens: 4096}
	cfg.Retry = RetryConfig{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
	cfg.Database.Port = 3306
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxOpenConns = 25
	cfg.Database.MaxIdleConns = 10
	cfg.Database.ConnMaxLifetime = 30 * time.Minute
	cfg.Redis.Stream = "polycode:events"
	cfg.RateLimit.Capacity = 30
	cfg.RateLimit.RefillRate = 30
	cfg.Limits.MaxCodeBytes = 256 << 10
	return &cfg
}

// Load baca .env, file config.yaml (opsional), lalu override dari environment
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.Engine.Provider, "LLM_PROVIDER")
	setString(&c.Engine.Model, "OPENAI_MODEL")
	setString(&c.Engine.BaseURL, "ENGINE_BASE_URL")
	setString(&c.Engine.FunctionName, "ENGINE_FUNCTION_NAME")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Redis.URL, "REDIS_URL")
	if c.Engine.Provider == "openai" {
		setString(&c.Engine.APIKey, "OPENAI_API_KEY")
	}
	setString(&c.Engine.APIKey, "ENGINE_API_KEY")
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	c.Engine.Provider = strings.ToLower(c.Engine.Provider)
	c.Database.Driver = strings.ToLower(c.Database.Driver)
}

func (c *Config) Validate() error {
	switch c.Engine.Provider {
	case "openai", "edge":
	case "lambda":
		if c.Engine.FunctionName == "" {
			return errors.New("engine.functionName is required for the lambda provider")
		}
	default:
		return fmt.Errorf("unsupported engine provider: %q (supported: openai, edge, lambda)", c.Engine.Provider)
	}
	if c.Engine.Provider == "edge" && c.Engine.BaseURL == "" {
		return errors.New("engine.baseURL is required for the edge provider")
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.maxRetries must not be negative")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
