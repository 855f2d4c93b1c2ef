package config

import (
	"strconv"
	"strings"
)

// ApplyEnv overlays environment variables onto cfg. Variable names follow the
// deployment conventions of the hosted service (GEMINI_API_KEY, PINECONE_*, SMTP_*, ...).
// getenv is usually os.Getenv; empty values leave the config untouched.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setInt(&cfg.Server.Port, "PORT")
	if v := getenv("CORS_ORIGIN"); strings.TrimSpace(v) != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	setString(&cfg.Storage.Backend, "STORAGE_BACKEND")
	setString(&cfg.Storage.MongoURI, "MONGO_URI")
	setString(&cfg.Storage.MongoDatabase, "MONGO_DB")

	setString(&cfg.Summarizer.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Embedding.APIKey, "GOOGLE_API_KEY")
	setString(&cfg.Embedding.RedisURL, "REDIS_URL")

	if v := strings.TrimSpace(getenv("VECTOR_BACKEND")); v != "" {
		cfg.Vector.Backend = strings.ToLower(v)
	}
	setString(&cfg.Vector.Pinecone.APIKey, "PINECONE_API_KEY")
	setString(&cfg.Vector.Pinecone.Index, "PINECONE_INDEX")
	setString(&cfg.Vector.Pinecone.Host, "PINECONE_HOST")
	setInt(&cfg.Vector.Pinecone.Dimension, "PINECONE_DIM")
	setString(&cfg.Vector.Qdrant.Host, "QDRANT_HOST")
	setInt(&cfg.Vector.Qdrant.Port, "QDRANT_PORT")
	setString(&cfg.Vector.Qdrant.APIKey, "QDRANT_API_KEY")

	setString(&cfg.Mail.Host, "SMTP_HOST")
	setInt(&cfg.Mail.Port, "SMTP_PORT")
	setString(&cfg.Mail.Username, "SMTP_USER")
	setString(&cfg.Mail.Password, "SMTP_PASS")
	setString(&cfg.Mail.From, "MAIL_FROM")
	setBool(&cfg.Mail.Debug, "SMTP_DEBUG")

	setString(&cfg.Events.NATSURL, "NATS_URL")
}
