package ctrl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcsec/vulncases/llm"
	"github.com/tcsec/vulncases/store"
)

func TestConfigInitDefaults(t *testing.T) {
	assert := require.New(t)

	for _, key := range []string{"ADDR", "MONGO_URI", "DB_NAME", "COLLECTION_NAME", "GEMINI_MODEL", "GEMINI_TIMEOUT_SECONDS", "SAMPLE_FILE"} {
		t.Setenv(key, "")
	}

	c := &Config{}
	c.Init()
	assert.Equal(DefaultAddr, c.Addr)
	assert.Equal(store.DefaultURI, c.MongoURI)
	assert.Equal(store.DefaultDBName, c.DBName)
	assert.Equal(store.DefaultCollection, c.Collection)
	assert.Equal(llm.DefaultModel, c.GeminiModel)
	assert.Equal(20, c.GeminiTimeoutSeconds)
	assert.Equal("./sample/test_cases.json", c.SampleFile)
}

func TestConfigInitEnvOverrides(t *testing.T) {
	assert := require.New(t)

	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("DB_NAME", "other_db")
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "45")
	t.Setenv("GEMINI_API_KEY", "test-key")

	c := &Config{}
	c.Init()
	assert.Equal("mongodb://db:27017", c.MongoURI)
	assert.Equal("other_db", c.DBName)
	assert.Equal(45, c.GeminiTimeoutSeconds)
	assert.Equal("test-key", c.GeminiAPIKey)
}

// Explicit values win over environment and defaults.
func TestConfigInitKeepsExplicitValues(t *testing.T) {
	assert := require.New(t)

	t.Setenv("MONGO_URI", "mongodb://db:27017")
	c := &Config{MongoURI: "mongodb://explicit:27017", Addr: ":8080"}
	c.Init()
	assert.Equal("mongodb://explicit:27017", c.MongoURI)
	assert.Equal(":8080", c.Addr)
}
