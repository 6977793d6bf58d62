package config

import "os"

// parseEnv overlays secrets and deployment-specific values commonly
// injected through the environment. Unset or empty variables are ignored.
func parseEnv(config *Config) {
	setFromEnv(&config.DatabaseDSN, "DATABASE_DSN")
	setFromEnv(&config.SecretKey, "JWT_SECRET")
	setFromEnv(&config.GoogleClientID, "GOOGLE_CLIENT_ID")
	setFromEnv(&config.LLMAPIKey, "OPENROUTER_API_KEY")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
