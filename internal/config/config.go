package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"nihilism/server/internal/game"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Game        GameConfig        `yaml:"game"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LLMConfig configures the narrative collaborator.
type LLMConfig struct {
	Provider       string        `yaml:"provider" env:"LLM_PROVIDER"`
	BaseURL        string        `yaml:"base_url" env:"LLM_BASE_URL"`
	APIKey         string        `yaml:"api_key" env:"LLM_API_KEY"`
	GeminiAPIKey   string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model          string        `yaml:"model" env:"LLM_MODEL"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"LLM_TIMEOUT"`
	JSONMode       bool          `yaml:"json_mode"`
}

type GameConfig struct {
	ScoreDelta     int             `yaml:"score_delta" env:"GAME_SCORE_DELTA"`
	KeyMemoryCap   int             `yaml:"key_memory_cap" env:"GAME_KEY_MEMORY_CAP"`
	RecentMemories int             `yaml:"recent_memories"`
	Autosave       AutosaveConfig  `yaml:"autosave"`
	Endings        game.Thresholds `yaml:"endings"`
}

// Rules builds the loop rules described by the game section.
func (g GameConfig) Rules() game.Rules {
	return game.Rules{
		Aggregator: game.Aggregator{
			ScoreDelta:   g.ScoreDelta,
			KeyMemoryCap: g.KeyMemoryCap,
		},
		Thresholds: g.Endings,
	}
}

type AutosaveConfig struct {
	Enabled         bool `yaml:"enabled" env:"AUTOSAVE_ENABLED"`
	IntervalChoices int  `yaml:"interval_choices" env:"AUTOSAVE_INTERVAL_CHOICES"`
}

type PersistenceConfig struct {
	Backend string       `yaml:"backend" env:"PERSISTENCE_BACKEND"`
	File    FileConfig   `yaml:"file"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	MySQL   MySQLConfig  `yaml:"mysql"`
	Redis   RedisConfig  `yaml:"redis"`
	Mongo   MongoConfig  `yaml:"mongo"`
}

type FileConfig struct {
	Dir string `yaml:"dir" env:"DATA_DIR"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn" env:"MYSQL_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

type MongoConfig struct {
	URI        string `yaml:"uri" env:"MONGODB_URI"`
	Database   string `yaml:"database" env:"MONGODB_DATABASE"`
	Collection string `yaml:"collection"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Debug reports whether debug logging is on.
func (l LoggingConfig) Debug() bool {
	return l.Level == "debug"
}

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			BaseURL:        "http://localhost:11434/v1",
			Model:          "llama3.2",
			Temperature:    0.8,
			MaxTokens:      800,
			RequestTimeout: 60 * time.Second,
			JSONMode:       true,
		},
		Game: GameConfig{
			ScoreDelta:     game.DefaultScoreDelta,
			KeyMemoryCap:   game.DefaultKeyMemoryCap,
			RecentMemories: 5,
			Autosave: AutosaveConfig{
				Enabled:         true,
				IntervalChoices: 3,
			},
			Endings: game.DefaultThresholds(),
		},
		Persistence: PersistenceConfig{
			Backend: BackendFile,
			File:    FileConfig{Dir: "data/saves"},
			SQLite:  SQLiteConfig{Path: "data/nihilism.db"},
			MySQL: MySQLConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
			},
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				PoolSize:  10,
				KeyPrefix: "nihilism:player:",
			},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "nihilism",
				Collection: "players",
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the session engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Game.ScoreDelta <= 0 {
		return fmt.Errorf("game.score_delta must be positive, got %d", c.Game.ScoreDelta)
	}
	if c.Game.KeyMemoryCap <= 0 {
		return fmt.Errorf("game.key_memory_cap must be positive, got %d", c.Game.KeyMemoryCap)
	}
	if c.Game.RecentMemories < 0 {
		return fmt.Errorf("game.recent_memories must not be negative, got %d", c.Game.RecentMemories)
	}
	if c.Game.Autosave.Enabled && c.Game.Autosave.IntervalChoices <= 0 {
		return fmt.Errorf("game.autosave.interval_choices must be positive, got %d", c.Game.Autosave.IntervalChoices)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("llm.request_timeout must be positive")
	}

	switch c.Persistence.Backend {
	case BackendFile, BackendMemory, BackendSQLite, BackendMySQL, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Persistence.Backend)
	}
	return nil
}
