package config

import "time"

// DefaultInstructions are used for transcripts arriving without explicit instructions,
// such as files dropped into a watched inbox.
const DefaultInstructions = "Summarize this meeting as a bullet list of key points, decisions and action items with owners and deadlines."

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".gijiroku/data/db/meetings.db"
	}
	if cfg.Storage.MongoURI == "" {
		cfg.Storage.MongoURI = "mongodb://127.0.0.1:27017/meeting-notes-summarizer"
	}
	if cfg.Storage.MongoDatabase == "" {
		cfg.Storage.MongoDatabase = "meeting-notes-summarizer"
	}
	if cfg.Storage.MongoCollection == "" {
		cfg.Storage.MongoCollection = "meetings"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = ".gijiroku/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = ".gijiroku/data/indices/vector"
	}

	if cfg.Summarizer.Provider == "" {
		cfg.Summarizer.Provider = "gemini"
	}
	if cfg.Summarizer.Model == "" {
		switch cfg.Summarizer.Provider {
		case "ollama":
			cfg.Summarizer.Model = "llama3.1"
		default:
			cfg.Summarizer.Model = "gemini-1.5-flash"
		}
	}
	if cfg.Summarizer.OllamaURL == "" {
		cfg.Summarizer.OllamaURL = "http://localhost:11434"
	}
	if cfg.Summarizer.MaxChars == 0 {
		cfg.Summarizer.MaxChars = 12000
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 6
	}
	if cfg.Summarizer.Timeout == 0 {
		cfg.Summarizer.Timeout = 60 * time.Second
	}
	if cfg.Summarizer.Concurrency == 0 {
		cfg.Summarizer.Concurrency = 4
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "ollama":
			cfg.Embedding.Model = "nomic-embed-text"
		default:
			cfg.Embedding.Model = "text-embedding-004"
		}
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = "http://localhost:11434"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = ".gijiroku/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "onnx", "mock":
			cfg.Embedding.Dimensions = 384
		default:
			cfg.Embedding.Dimensions = 768
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.RedisTTL == 0 {
		cfg.Embedding.RedisTTL = 7 * 24 * time.Hour
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}

	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Vector.Qdrant.Host == "" {
		cfg.Vector.Qdrant.Host = "localhost"
	}
	if cfg.Vector.Qdrant.Port == 0 {
		cfg.Vector.Qdrant.Port = 6334
	}
	if cfg.Vector.Qdrant.CollectionPrefix == "" {
		cfg.Vector.Qdrant.CollectionPrefix = "meetings"
	}

	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "gijiroku"
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".vtt", ".srt", ".pdf", ".docx", ".xlsx"}
	}
	if cfg.Watch.Instructions == "" {
		cfg.Watch.Instructions = DefaultInstructions
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
