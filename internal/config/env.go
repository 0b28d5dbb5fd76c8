package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process bootstrap settings. Everything that lives in the
// persisted config document (API credentials, saved prompts, list items) is
// deliberately not here; see internal/core/settings.
type Config struct {
	Port        string
	ConfigPath  string
	MaxWorkers  int
	MaxFileSize int64
	Debug       bool
}

// LoadConfig reads the environment (after a best-effort .env load) and
// returns the config with defaults applied.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		ConfigPath:  getEnv("CONFIG_PATH", "config.json"),
		MaxWorkers:  getEnvInt("MAX_WORKERS", 5),
		MaxFileSize: int64(getEnvInt("MAX_FILE_SIZE", 20*1024*1024)),
		Debug:       getEnv("DEBUG", "") != "",
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
