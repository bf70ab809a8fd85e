// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider kinds understood by the roster
const (
	ProviderKindOpenAI = "openai"
	ProviderKindOllama = "ollama"
	ProviderKindGemini = "gemini"
)

// deadlineSlack is added on top of the roster budget for persistence and
// response encoding.
const deadlineSlack = 30 * time.Second

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	AI         AIConfig         `mapstructure:"ai"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Generation GenerationConfig `mapstructure:"generation"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CacheConfig selects the plan cache in front of the store
type CacheConfig struct {
	// Driver is one of "memory", "redis" or "none"
	Driver    string        `mapstructure:"driver"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// AIConfig contains the ordered provider roster
type AIConfig struct {
	Providers     []ProviderConfig `mapstructure:"providers"`
	HealthTimeout time.Duration    `mapstructure:"health_timeout"`
}

// ProviderConfig describes one roster entry
type ProviderConfig struct {
	Name              string        `mapstructure:"name"`
	Kind              string        `mapstructure:"kind"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	APIKeyEnv         string        `mapstructure:"api_key_env"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// PromptConfig contains the wording injected into the prompt builder
type PromptConfig struct {
	Persona      string `mapstructure:"persona"`
	WeightUnit   string `mapstructure:"weight_unit"`
	HeightUnit   string `mapstructure:"height_unit"`
	ProteinRange string `mapstructure:"protein_range"`
}

// GenerationConfig contains response validation settings
type GenerationConfig struct {
	MacroCheck     bool    `mapstructure:"macro_check"`
	MacroTolerance float64 `mapstructure:"macro_tolerance"`
}

// Load loads configuration from .env, the config file and environment variables
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mealplan")
	}

	v.SetEnvPrefix("MEALPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.resolveProviders()
	config.resolveDeadlines()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultProviders is the Groq roster used when no providers are configured
func DefaultProviders() []map[string]interface{} {
	models := []struct{ name, model string }{
		{"llama70", "llama-3.3-70b-versatile"},
		{"gemma2", "gemma2-9b-it"},
		{"llama-specdec", "llama-3.3-70b-specdec"},
		{"llama-vision", "llama-3.2-90b-vision-preview"},
		{"deepseek", "deepseek-r1-distill-qwen-32b"},
	}

	out := make([]map[string]interface{}, 0, len(models))
	for _, m := range models {
		out = append(out, map[string]interface{}{
			"name":        m.name,
			"kind":        ProviderKindOpenAI,
			"model":       m.model,
			"base_url":    "https://api.groq.com/openai/v1",
			"api_key_env": "GROQ_API_KEY",
			"temperature": 0.2,
			"max_tokens":  4096,
			"timeout":     "60s",
			"max_retries": 2,
		})
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mealplan")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	// Zero derives both from the provider roster budget.
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "0s")
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "mealplan.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "mealplan")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.key_prefix", "mealplan:")

	v.SetDefault("ai.providers", DefaultProviders())
	v.SetDefault("ai.health_timeout", "10s")

	v.SetDefault("generation.macro_check", false)
	v.SetDefault("generation.macro_tolerance", 0.15)
}

// resolveProviders fills API keys from the environment and per-field defaults
func (c *Config) resolveProviders() {
	for i := range c.AI.Providers {
		p := &c.AI.Providers[i]
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
		if p.Name == "" {
			p.Name = p.Model
		}
		if p.Timeout <= 0 {
			p.Timeout = 60 * time.Second
		}
		if p.MaxTokens <= 0 {
			p.MaxTokens = 4096
		}
		if p.MaxRetries < 0 {
			p.MaxRetries = 0
		}
	}
}

// RosterBudget is the longest a walk of the whole roster can take: the sum
// of every provider's timeout, which bounds each call including retries.
func (c AIConfig) RosterBudget() time.Duration {
	var total time.Duration
	for _, p := range c.Providers {
		total += p.Timeout
	}
	return total
}

// resolveDeadlines derives unset request and write deadlines from the roster
func (c *Config) resolveDeadlines() {
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = c.AI.RosterBudget() + deadlineSlack
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = c.Server.RequestTimeout + deadlineSlack
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.driver must be memory, redis or none, got %q", c.Cache.Driver)
	}

	if len(c.AI.Providers) == 0 {
		return fmt.Errorf("ai.providers must list at least one provider")
	}

	seen := make(map[string]bool, len(c.AI.Providers))
	for i, p := range c.AI.Providers {
		switch p.Kind {
		case ProviderKindOpenAI, ProviderKindOllama, ProviderKindGemini:
		default:
			return fmt.Errorf("ai.providers[%d]: unknown kind %q", i, p.Kind)
		}
		if p.Model == "" {
			return fmt.Errorf("ai.providers[%d]: model is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("ai.providers[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("ai.providers[%d]: temperature must be between 0 and 2", i)
		}
	}

	if budget := c.AI.RosterBudget(); c.Server.RequestTimeout > 0 && c.Server.RequestTimeout < budget {
		return fmt.Errorf("server.request_timeout %s is shorter than the provider roster budget %s",
			c.Server.RequestTimeout, budget)
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Server.RequestTimeout {
		return fmt.Errorf("server.write_timeout %s is shorter than server.request_timeout %s",
			c.Server.WriteTimeout, c.Server.RequestTimeout)
	}

	return nil
}
