package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	BotToken    string
	LogLevel    string
	LogFormat   string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	HTTPAddr    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Bucket    string
}

func Load() (Config, error) {
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}

	s3UseSSL, err := getBool("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BotToken:    strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		LogLevel:    getString("LOG_LEVEL", "info"),
		LogFormat:   getString("LOG_FORMAT", "text"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:   getString("REDIS_ADDR", "localhost:6379"),
		RedisDB:     redisDB,
		HTTPAddr:    getString("HTTP_ADDR", ""),
		S3Endpoint:  getString("S3_ENDPOINT", ""),
		S3AccessKey: getString("S3_ACCESS_KEY", ""),
		S3SecretKey: getString("S3_SECRET_KEY", ""),
		S3UseSSL:    s3UseSSL,
		S3Bucket:    getString("S3_BUCKET", ""),
	}

	return cfg, nil
}

// IsExportEnabled reports whether the object-storage settings are complete
// enough to offer history exports.
func (c Config) IsExportEnabled() bool {
	return strings.TrimSpace(c.S3Endpoint) != "" && strings.TrimSpace(c.S3Bucket) != ""
}

func getString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}
