package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int               `json:"port"`
	JWTSecret string            `json:"jwt_secret"`
	LogConfig logger.LogConfig  `json:"log_config"`
	Database  DatabaseConfig    `json:"database"`
	Store     ObjectStoreConfig `json:"object_store"`
	AI        AIConfig          `json:"ai"`
	Ingest    IngestConfig      `json:"ingest"`
	Search    SearchConfig      `json:"search"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type ObjectStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Data           interface{} `json:"data"`
	ChatModel      string      `json:"chat_model"`
	EmbedModel     string      `json:"embed_model"`
	EmbedDim       int         `json:"embed_dim"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	EmbedCacheSize int         `json:"embed_cache_size"`
}

type IngestConfig struct {
	ChunkSize           int `json:"chunk_size"`
	ChunkOverlap        int `json:"chunk_overlap"`
	QueueWorkers        int `json:"queue_workers"`
	MaxRetries          int `json:"max_retries"`
	CompletionAttempts  int `json:"completion_attempts"`
	CompletionDelayMS   int `json:"completion_delay_ms"`
	RetryStuckAfterMins int `json:"retry_stuck_after_mins"`
}

type SearchConfig struct {
	DefaultLimit      int     `json:"default_limit"`
	DefaultThreshold  float64 `json:"default_threshold"`
	ScoreOffset       float64 `json:"score_offset"`
	RateLimitWindowMS int     `json:"rate_limit_window_ms"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.DBName == "" {
		return nil, fmt.Errorf("database host/user/db_name are required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.ChatModel == "" || cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.chat_model and ai.embed_model are required")
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 1536
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 10000
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return nil, fmt.Errorf("ingest.chunk_overlap must be smaller than chunk_size")
	}
	if cfg.Ingest.QueueWorkers == 0 {
		cfg.Ingest.QueueWorkers = 4
	}
	if cfg.Ingest.MaxRetries == 0 {
		cfg.Ingest.MaxRetries = 5
	}
	if cfg.Ingest.CompletionAttempts == 0 {
		cfg.Ingest.CompletionAttempts = 3
	}
	if cfg.Ingest.CompletionDelayMS == 0 {
		cfg.Ingest.CompletionDelayMS = 2000
	}
	if cfg.Ingest.RetryStuckAfterMins == 0 {
		cfg.Ingest.RetryStuckAfterMins = 15
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.DefaultThreshold == 0 {
		cfg.Search.DefaultThreshold = 0.7
	}
	return &cfg, nil
}
