// config.go - Configuration loaded once from environment variables

package configs

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// credentialEnvKeys lists the conventional names the Gemini key has been published under,
// in probing order.
var credentialEnvKeys = []string{
	"GEMINI_API_KEY",
	"VITE_API_KEY",
	"VITE_KEY",
	"NEXT_PUBLIC_API_KEY",
	"API_KEY",
}

// DefaultModels is the candidate order used when GEMINI_MODELS is not set.
// Highest quota headroom first.
var DefaultModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
	"gemini-2.0-flash-lite",
	"gemini-2.0-flash",
}

// Config holds every setting the service reads at startup.
type Config struct {
	// AI providers
	GeminiAPIKey    string
	GeminiKeySource string // env var the key was found under
	GeminiTransport string // "sdk" or "rest"
	GeminiBaseURL   string
	Models          []string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	// Orchestration
	AttemptTimeout     time.Duration
	BackoffInitial     time.Duration
	BackoffMax         time.Duration
	NetworkRetryDelay  time.Duration
	RateLimitTokens    int
	RateLimitRefill    time.Duration
	SimulationFallback bool

	// Image preprocessing
	MaxImageDimension int
	JPEGQuality       int
	MaxUploadBytes    int64

	// Server
	Port           string
	AllowedOrigins string

	// Report archive
	MongoURI    string
	MongoDBName string
	ReportTTL   time.Duration
	SessionTTL  time.Duration

	// Portrait object storage (optional)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the process environment into a Config.
// A missing Gemini key is not an error here; requests fail with invalid_key instead.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{}
	cfg.GeminiAPIKey, cfg.GeminiKeySource = probeCredential(os.Getenv)
	cfg.GeminiTransport = strings.ToLower(getEnv("GEMINI_TRANSPORT", "sdk"))
	cfg.GeminiBaseURL = getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	cfg.Models = getEnvList("GEMINI_MODELS", DefaultModels)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")

	cfg.AttemptTimeout = getEnvDuration("ATTEMPT_TIMEOUT", 25*time.Second)
	cfg.BackoffInitial = getEnvDuration("BACKOFF_INITIAL", 1*time.Second)
	cfg.BackoffMax = getEnvDuration("BACKOFF_MAX", 4*time.Second)
	cfg.NetworkRetryDelay = getEnvDuration("NETWORK_RETRY_DELAY", 500*time.Millisecond)
	cfg.RateLimitTokens = getEnvInt("RATE_LIMIT_TOKENS", 12)
	cfg.RateLimitRefill = getEnvDuration("RATE_LIMIT_REFILL", 5*time.Second)
	cfg.SimulationFallback = getEnvBool("SIMULATION_FALLBACK", true)

	cfg.MaxImageDimension = getEnvInt("MAX_IMAGE_DIMENSION", 512)
	cfg.JPEGQuality = getEnvInt("JPEG_QUALITY", 60)
	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20))

	cfg.Port = getEnv("PORT", "8080")
	cfg.AllowedOrigins = getEnv("ALLOWED_ORIGINS", "*")

	cfg.MongoURI = getEnv("MONGO_URI", "")
	cfg.MongoDBName = getEnv("MONGO_DB_NAME", "biometric_scan")
	cfg.ReportTTL = getEnvDuration("REPORT_TTL", 24*time.Hour)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 30*time.Minute)

	cfg.MinioEndpoint = getEnv("MINIO_ENDPOINT", "")
	cfg.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", "")
	cfg.MinioSecretKey = getEnv("MINIO_SECRET_KEY", "")
	cfg.MinioBucket = getEnv("MINIO_BUCKET", "portraits")
	cfg.MinioRegion = getEnv("MINIO_REGION", "us-east-1")
	cfg.MinioUseSSL = getEnvBool("MINIO_USE_SSL", false)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")

	if cfg.GeminiAPIKey == "" {
		log.Println("⚠️  No Gemini API key found; analysis requests will be rejected")
	} else {
		log.Printf("✓ Gemini API key loaded from %s", cfg.GeminiKeySource)
	}
	log.Println("✓ Configuration loaded successfully")
	return cfg
}

// probeCredential returns the first non-empty key from credentialEnvKeys.
func probeCredential(lookup func(string) string) (string, string) {
	for _, key := range credentialEnvKeys {
		if value := strings.TrimSpace(lookup(key)); value != "" {
			return value, key
		}
	}
	return "", ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return out
}
