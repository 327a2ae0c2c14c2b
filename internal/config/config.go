package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogLevel    string
	AdminToken  string
	VerifyToken string

	WhatsAppToken             string
	PhoneNumberID             string
	WhatsAppBusinessAccountID string
	GraphAPIBase              string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	LLMTimeout      time.Duration
	LLMRatePerMin   int
	LLMHistoryTurns int

	PhoneCountryCode           string
	PhoneMaxDigits             int
	PhoneOpaquePrefixes        []string
	PhoneOpaquePrefixMinDigits int
	PhoneOverrides             map[string]string

	WorkflowInactivity   time.Duration
	AIFallbackMessage    string
	AIName               string
	AIHealthLazyRecover  bool
	WebhookRatePerSecond float64
	WebhookBurst         int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		VerifyToken: getEnv("VERIFY_TOKEN", ""),

		WhatsAppToken:             getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:             getEnv("PHONE_NUMBER_ID", ""),
		WhatsAppBusinessAccountID: getEnv("WABA_ID", ""),
		GraphAPIBase:              getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v19.0"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "./showroom.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "showroom"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:      getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		LLMRatePerMin:   getEnvInt("LLM_RATE_PER_MIN", 120),
		LLMHistoryTurns: getEnvInt("LLM_HISTORY_TURNS", 10),

		PhoneCountryCode:           getEnv("PHONE_COUNTRY_CODE", "62"),
		PhoneMaxDigits:             getEnvInt("PHONE_MAX_DIGITS", 15),
		PhoneOpaquePrefixes:        getEnvList("PHONE_OPAQUE_PREFIXES", []string{"1", "2"}),
		PhoneOpaquePrefixMinDigits: getEnvInt("PHONE_OPAQUE_PREFIX_MIN_DIGITS", 14),
		PhoneOverrides:             getEnvMap("PHONE_OVERRIDES"),

		WorkflowInactivity:   getEnvDuration("WORKFLOW_INACTIVITY", 30*time.Minute),
		AIFallbackMessage:    getEnv("AI_FALLBACK_MESSAGE", "Terima kasih, pesan Anda sudah kami terima. Tim kami akan segera membalas."),
		AIName:               getEnv("AI_NAME", "AI Assistant"),
		AIHealthLazyRecover:  getEnvBool("AI_HEALTH_LAZY_RECOVER", false),
		WebhookRatePerSecond: getEnvFloat("WEBHOOK_RATE_PER_SECOND", 20),
		WebhookBurst:         getEnvInt("WEBHOOK_BURST", 40),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", raw)
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", raw)
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", raw)
		return fallback
	}
	return v
}

// getEnvList splits a comma separated value. An explicitly empty variable yields
// an empty list rather than the fallback.
func getEnvList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvMap parses "from=to,from2=to2".
func getEnvMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range getEnvList(key, nil) {
		from, to, ok := strings.Cut(pair, "=")
		if !ok {
			slog.Warn("ignoring malformed map entry", "key", key, "entry", pair)
			continue
		}
		out[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return out
}
