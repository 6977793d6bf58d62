package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/flagx"
	"github.com/dmitrijs2005/recipebox/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "15s" or integer nanoseconds. Absent keys keep the
// current value.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrHealth           *string        `json:"endpoint_addr_health"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	GoogleClientID               string         `json:"google_client_id"`
	AllowedOrigins               []string       `json:"allowed_origins"`

	LLMBaseURL string         `json:"llm_base_url"`
	LLMAPIKey  string         `json:"llm_api_key"`
	LLMModel   string         `json:"llm_model"`
	LLMTimeout timex.Duration `json:"llm_timeout"`
	LLMReferer string         `json:"llm_referer"`

	UserCacheTTL     timex.Duration `json:"user_cache_ttl"`
	SuggestRateLimit *int           `json:"suggest_rate_limit"`
	RefusalMarkers   []string       `json:"refusal_markers"`
	SystemPrompt     string         `json:"system_prompt"`
	LogLevel         string         `json:"log_level"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c/-config into config. Without the
// flag nothing is loaded. Unreadable files or invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.applyTo(config)
}

func (c *JsonConfig) applyTo(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	if c.EndpointAddrHealth != nil {
		config.EndpointAddrHealth = *c.EndpointAddrHealth
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.GoogleClientID, c.GoogleClientID)
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}

	setString(&config.LLMBaseURL, c.LLMBaseURL)
	setString(&config.LLMAPIKey, c.LLMAPIKey)
	setString(&config.LLMModel, c.LLMModel)
	setDuration(&config.LLMTimeout, c.LLMTimeout)
	setString(&config.LLMReferer, c.LLMReferer)

	setDuration(&config.UserCacheTTL, c.UserCacheTTL)
	if c.SuggestRateLimit != nil {
		config.SuggestRateLimit = *c.SuggestRateLimit
	}
	if c.RefusalMarkers != nil {
		config.RefusalMarkers = c.RefusalMarkers
	}
	setString(&config.SystemPrompt, c.SystemPrompt)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
