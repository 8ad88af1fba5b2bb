package config

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the environment value for key, or fallback when unset or blank.
func GetEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt parses an integer environment value, returning fallback on absence or error.
func GetEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

// UploadPath is the root directory for stored abstract files.
func UploadPath() string {
	return GetEnv("UPLOAD_PATH", "./uploads")
}

// AllowedOrigins lists the CORS origins from CORS_ALLOWED_ORIGINS.
func AllowedOrigins() []string {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if strings.TrimSpace(raw) == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
