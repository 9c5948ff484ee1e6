package ctrl

import (
	"os"
	"strconv"

	"github.com/tcsec/vulncases/llm"
	"github.com/tcsec/vulncases/store"
)

// Config is the full application configuration. Every field has an
// environment fallback so the service can run from a bare container.
type Config struct {
	Addr                 string `yaml:"addr" json:"addr"`
	MongoURI             string `yaml:"mongo_uri" json:"mongo_uri"`
	DBName               string `yaml:"db_name" json:"db_name"`
	Collection           string `yaml:"collection" json:"collection"`
	GeminiAPIKey         string `yaml:"gemini_api_key" json:"gemini_api_key"`
	GeminiModel          string `yaml:"gemini_model" json:"gemini_model"`
	GeminiTimeoutSeconds int    `yaml:"gemini_timeout_seconds" json:"gemini_timeout_seconds"`
	WebhookURL           string `yaml:"webhook_url" json:"webhook_url"`
	SampleFile           string `yaml:"sample_file" json:"sample_file"`
}

const (
	DefaultAddr           = ":5000"
	defaultTimeoutSeconds = 20
)

// Init fills unset fields from the environment and the documented
// defaults. The API key is intentionally env-only, it never appears in a
// config file or on the command line.
func (c *Config) Init() {
	if c.Addr == "" {
		c.Addr = envOr("ADDR", DefaultAddr)
	}
	if c.MongoURI == "" {
		c.MongoURI = envOr("MONGO_URI", store.DefaultURI)
	}
	if c.DBName == "" {
		c.DBName = envOr("DB_NAME", store.DefaultDBName)
	}
	if c.Collection == "" {
		c.Collection = envOr("COLLECTION_NAME", store.DefaultCollection)
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.GeminiModel == "" {
		c.GeminiModel = envOr("GEMINI_MODEL", llm.DefaultModel)
	}
	if c.GeminiTimeoutSeconds == 0 {
		c.GeminiTimeoutSeconds = defaultTimeoutSeconds
		if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.GeminiTimeoutSeconds = n
			}
		}
	}
	if c.WebhookURL == "" {
		c.WebhookURL = os.Getenv("WEBHOOK_URL")
	}
	if c.SampleFile == "" {
		c.SampleFile = envOr("SAMPLE_FILE", "./sample/test_cases.json")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
