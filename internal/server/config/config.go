// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/recipebox/internal/server/llm"
	"github.com/dmitrijs2005/recipebox/internal/server/moderation"
	"github.com/dmitrijs2005/recipebox/internal/server/prompts"
)

// Config holds runtime settings for the recipebox server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the JSON API.
//   - EndpointAddrHealth: bind address for the gRPC health service; empty disables it.
//   - DatabaseDSN: SQLite path/DSN, or a postgres:// URL.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - GoogleClientID: OAuth client id that Google ID tokens must be issued for.
//   - LLM*: completion provider settings.
//   - S3*: favorites export target; export is disabled while S3Bucket is empty.
type Config struct {
	EndpointAddrHTTP             string
	EndpointAddrHealth           string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	GoogleClientID               string
	AllowedOrigins               []string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration
	LLMReferer string

	UserCacheTTL     time.Duration
	SuggestRateLimit int
	RefusalMarkers   []string
	SystemPrompt     string
	LogLevel         string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// DefaultSQLiteDSN keeps the database next to the binary with foreign keys
// enforced and WAL journaling.
const DefaultSQLiteDSN = "file:data/recipebox.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(30000)"

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5000"
	c.EndpointAddrHealth = ":50051"
	c.DatabaseDSN = DefaultSQLiteDSN
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 60 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.AllowedOrigins = []string{"http://localhost:3000"}

	c.LLMBaseURL = llm.DefaultBaseURL
	c.LLMModel = llm.DefaultModel
	c.LLMTimeout = llm.DefaultTimeout
	c.LLMReferer = llm.DefaultReferer

	c.UserCacheTTL = 5 * time.Minute
	c.SuggestRateLimit = 20
	c.RefusalMarkers = append([]string(nil), moderation.DefaultRefusalMarkers...)
	c.SystemPrompt = prompts.ChefSystemPrompt
	c.LogLevel = "info"

	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
