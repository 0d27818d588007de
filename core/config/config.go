package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"courtbook-api/core/database"
	"courtbook-api/core/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	Database  database.DatabaseConfig `mapstructure:"database"`
	Redis     RedisConfig             `mapstructure:"redis"`
	OpenAI    OpenAIConfig            `mapstructure:"openai"`
	Assistant AssistantConfig         `mapstructure:"assistant"`
	Log       LogConfig               `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	CourtTTL time.Duration `mapstructure:"court_ttl"`
}

type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// AssistantConfig holds the behavioural switches of the scheduling assistant.
type AssistantConfig struct {
	UTCOffsetMinutes    int           `mapstructure:"utc_offset_minutes"`
	MinFreeMinutes      int           `mapstructure:"min_free_minutes"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	MaxToolCalls        int           `mapstructure:"max_tool_calls"`
	InferSingleCourt    bool          `mapstructure:"infer_single_court"`
	InferSingleModality bool          `mapstructure:"infer_single_modality"`
	DefaultPageSize     int           `mapstructure:"default_page_size"`
	MaxPageSize         int           `mapstructure:"max_page_size"`
	ClientSearchLimit   int           `mapstructure:"client_search_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         7070,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Database: database.DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "courtbook",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CourtTTL: 5 * time.Minute,
		},
		OpenAI: OpenAIConfig{
			Model:             "gpt-4o-mini",
			Temperature:       0.2,
			Timeout:           20 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Assistant: AssistantConfig{
			UTCOffsetMinutes:    -180,
			MinFreeMinutes:      30,
			RequestTimeout:      45 * time.Second,
			MaxToolCalls:        6,
			InferSingleCourt:    true,
			InferSingleModality: true,
			DefaultPageSize:     20,
			MaxPageSize:         100,
			ClientSearchLimit:   10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration once per process: optional .env file first,
// then environment variables (SERVER_PORT, OPENAI_API_KEY, ASSISTANT_MAX_TOOL_CALLS, ...),
// then an optional config file at path.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Config:Load:DotEnv", "error", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Assistant.UTCOffsetMinutes < -14*60 || c.Assistant.UTCOffsetMinutes > 14*60 {
		return fmt.Errorf("assistant.utc_offset_minutes out of range: %d", c.Assistant.UTCOffsetMinutes)
	}
	if c.Assistant.MinFreeMinutes < 0 {
		return fmt.Errorf("assistant.min_free_minutes must not be negative")
	}
	if c.Assistant.MaxToolCalls <= 0 {
		return fmt.Errorf("assistant.max_tool_calls must be positive")
	}
	if c.OpenAI.Timeout <= 0 || c.Assistant.RequestTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.dbname", d.Database.DBName)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("redis.address", d.Redis.Address)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.court_ttl", d.Redis.CourtTTL)

	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.temperature", d.OpenAI.Temperature)
	v.SetDefault("openai.timeout", d.OpenAI.Timeout)
	v.SetDefault("openai.requests_per_second", d.OpenAI.RequestsPerSecond)
	v.SetDefault("openai.burst", d.OpenAI.Burst)

	v.SetDefault("assistant.utc_offset_minutes", d.Assistant.UTCOffsetMinutes)
	v.SetDefault("assistant.min_free_minutes", d.Assistant.MinFreeMinutes)
	v.SetDefault("assistant.request_timeout", d.Assistant.RequestTimeout)
	v.SetDefault("assistant.max_tool_calls", d.Assistant.MaxToolCalls)
	v.SetDefault("assistant.infer_single_court", d.Assistant.InferSingleCourt)
	v.SetDefault("assistant.infer_single_modality", d.Assistant.InferSingleModality)
	v.SetDefault("assistant.default_page_size", d.Assistant.DefaultPageSize)
	v.SetDefault("assistant.max_page_size", d.Assistant.MaxPageSize)
	v.SetDefault("assistant.client_search_limit", d.Assistant.ClientSearchLimit)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}
