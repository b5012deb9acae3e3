package config

import "os"

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string
}

// Load reads configuration from the environment with sensible defaults.
// Precedence: explicit env var > .env file (loaded by the caller) > default.
// SESSION_SECRET is consumed directly by the auth package.
func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "invoicedesk.db"),
		Env:         getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
