// Package config loads runtime settings from the environment and the
// safety policy from a YAML file. Environment variables hold deployment
// concerns (ports, API keys, model names, timeouts); the policy file holds
// the safety rules an operator tunes per household.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings are the environment-driven runtime settings.
type Settings struct {
	// Server.
	AppHost      string
	AppPort      int
	AllowOrigins string

	// Models.
	OpenAIAPIKey  string
	ModelName     string
	FastModelName string
	EnableModel   bool

	// Timeouts.
	PlanTimeout     time.Duration
	FastRiskTimeout time.Duration
	DeepRiskTimeout time.Duration
	OracleTimeout   time.Duration

	// Domain verification.
	OracleAPIKey string
	EnableOracle bool

	// Browser.
	EnableBrowser bool
	Headless      bool

	// Safety policy file location.
	PolicyPath string
}

// Load reads settings from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win
// over .env entries.
func Load() *Settings {
	_ = godotenv.Load()

	return &Settings{
		AppHost:      getEnv("APP_HOST", "0.0.0.0"),
		AppPort:      getInt("APP_PORT", 8000),
		AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		ModelName:     getEnv("MODEL_NAME", "gpt-4o"),
		FastModelName: getEnv("FAST_MODEL_NAME", "gpt-4o-mini"),
		EnableModel:   getBool("ENABLE_MODEL", false),

		PlanTimeout:     getSeconds("PLAN_TIMEOUT_SEC", 10),
		FastRiskTimeout: getSeconds("FAST_RISK_TIMEOUT_SEC", 2),
		DeepRiskTimeout: getSeconds("DEEP_RISK_TIMEOUT_SEC", 10),
		OracleTimeout:   getSeconds("ORACLE_TIMEOUT_SEC", 3),

		OracleAPIKey: getEnv("ORACLE_API_KEY", ""),
		EnableOracle: getBool("ENABLE_ORACLE_VERIFICATION", false),

		EnableBrowser: getBool("ENABLE_BROWSER", false),
		Headless:      getBool("BROWSER_HEADLESS", true),

		PolicyPath: getEnv("SAFETY_POLICY_PATH", "safety-policy.yaml"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getSeconds(key string, fallback float64) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return time.Duration(fallback * float64(time.Second))
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return time.Duration(fallback * float64(time.Second))
	}
	return time.Duration(parsed * float64(time.Second))
}
