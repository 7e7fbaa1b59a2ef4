package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	CatalogPath   string
	ReferencePath string
	SourcesDir    string
	OutputDir     string
	DBPath        string

	ReferenceURL          string
	ReferenceRateLimitRPS int
	ReferenceTimeoutMs    int

	// LenientNoCity controls how a reference entry without recorded cities is
	// treated: true accepts any queried city for that name, false rejects
	// unless the name is in the verified-no-city set.
	LenientNoCity bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		CatalogPath:   getEnv("CATALOG_PATH", filepath.Join(cwd, "data", "unified_healthcare_organizations.json")),
		ReferencePath: getEnv("REFERENCE_PATH", filepath.Join(cwd, "data", "jci_accredited_organizations.json")),
		SourcesDir:    getEnv("SOURCES_DIR", filepath.Join(cwd, "data", "external_organizations")),
		OutputDir:     getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		DBPath:        getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),

		ReferenceURL:          getEnv("REFERENCE_URL", ""),
		ReferenceRateLimitRPS: getEnvInt("REFERENCE_RATE_LIMIT_RPS", 5),
		ReferenceTimeoutMs:    getEnvInt("REFERENCE_TIMEOUT_MS", 30000),

		LenientNoCity: getEnvBool("REFERENCE_LENIENT_NO_CITY", true),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
