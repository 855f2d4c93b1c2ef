// Package config provides configuration loading and structs for the gijiroku service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Vector     VectorConfig     `yaml:"vector"`
	Mail       MailConfig       `yaml:"mail"`
	Events     EventsConfig     `yaml:"events"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig selects the document store and holds index paths.
type StorageConfig struct {
	Backend         string `yaml:"backend"` // sqlite | mongo
	DatabasePath    string `yaml:"database_path"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// SummarizerConfig configures the generative provider and the extractive fallback.
type SummarizerConfig struct {
	Provider          string        `yaml:"provider"` // gemini | ollama | none
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	OllamaURL         string        `yaml:"ollama_url"`
	MaxChars          int           `yaml:"max_chars"`
	MaxSentences      int           `yaml:"max_sentences"`
	Timeout           time.Duration `yaml:"timeout"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// EmbeddingConfig configures the embedding provider and its caches.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // gemini | ollama | onnx | mock | none
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	OllamaURL  string        `yaml:"ollama_url"`
	ModelPath  string        `yaml:"model_path"`
	Dimensions int           `yaml:"dimensions"`
	MaxTokens  int           `yaml:"max_tokens"`
	CacheSize  int           `yaml:"cache_size"`
	RedisURL   string        `yaml:"redis_url"`
	RedisTTL   time.Duration `yaml:"redis_ttl"`
	Timeout    time.Duration `yaml:"timeout"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	Backend      string         `yaml:"backend"` // memory | faiss | pinecone | qdrant
	FitDimension bool           `yaml:"fit_dimension"`
	Pinecone     PineconeConfig `yaml:"pinecone"`
	Qdrant       QdrantConfig   `yaml:"qdrant"`
}

// PineconeConfig holds managed index settings. APIKey and Index are required.
type PineconeConfig struct {
	APIKey    string `yaml:"api_key"`
	Index     string `yaml:"index"`
	Host      string `yaml:"host"`
	Dimension int    `yaml:"dimension"`
}

// QdrantConfig holds qdrant gRPC connection settings.
type QdrantConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	APIKey           string `yaml:"api_key"`
	UseTLS           bool   `yaml:"use_tls"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

// MailConfig holds SMTP settings.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Debug    bool   `yaml:"debug"`
}

// EventsConfig holds NATS settings. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// WatchConfig holds transcript inbox settings.
type WatchConfig struct {
	Directories  []string `yaml:"directories"`
	Extensions   []string `yaml:"extensions"`
	Recursive    *bool    `yaml:"recursive"`
	Instructions string   `yaml:"instructions"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads and parses the config file at path, applies defaults, expands paths
// and overlays environment variables.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	expandPaths(&cfg, filepath.Dir(path))
	ApplyEnv(&cfg, os.Getenv)
	return &cfg, nil
}

// Default returns a config built only from defaults and the environment,
// for running without a config file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	expandPaths(cfg, wd)
	ApplyEnv(cfg, os.Getenv)
	return cfg
}

// Save writes the config to path. Used for persisting watch directory changes.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
