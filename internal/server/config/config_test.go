package config

import (
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/server/llm"
	"github.com/dmitrijs2005/recipebox/internal/server/moderation"
	"github.com/dmitrijs2005/recipebox/internal/server/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":5000", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrHealth)
	assert.Equal(t, DefaultSQLiteDSN, c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, 60*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, []string{"http://localhost:3000"}, c.AllowedOrigins)
	assert.Equal(t, llm.DefaultBaseURL, c.LLMBaseURL)
	assert.Equal(t, llm.DefaultModel, c.LLMModel)
	assert.Equal(t, 15*time.Second, c.LLMTimeout)
	assert.Equal(t, 5*time.Minute, c.UserCacheTTL)
	assert.Equal(t, moderation.DefaultRefusalMarkers, c.RefusalMarkers)
	assert.Equal(t, prompts.ChefSystemPrompt, c.SystemPrompt)
	assert.Empty(t, c.S3Bucket)
	assert.Equal(t, "us-east-1", c.S3Region)
}

func TestLoadDefaults_MarkersAreACopy(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.RefusalMarkers[0] = "changed"
	assert.NotEqual(t, "changed", moderation.DefaultRefusalMarkers[0])
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	for _, k := range []string{"DATABASE_DSN", "JWT_SECRET", "GOOGLE_CLIENT_ID", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}

	c := LoadConfig()
	require.NotNil(t, c)

	assert.Equal(t, ":5000", c.EndpointAddrHTTP)
	assert.Equal(t, DefaultSQLiteDSN, c.DatabaseDSN)
	assert.Equal(t, 60*time.Minute, c.AccessTokenValidityDuration)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"database_dsn": "from-json.db",
		"secret_key":   "json-secret",
		"llm_model":    "json/model",
	})
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	os.Args = []string{"testbin", "-c", path, "-m", "flag/model"}

	c := LoadConfig()
	assert.Equal(t, "from-json.db", c.DatabaseDSN, "json beats defaults")
	assert.Equal(t, "env-secret", c.SecretKey, "env beats json")
	assert.Equal(t, "flag/model", c.LLMModel, "flags beat json")
}
