package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

// SessionConfig holds the conversation thresholds. All of them are tunable.
type SessionConfig struct {
	AutoCommitAfter     time.Duration
	SameBreathWindow    time.Duration
	InactivityThreshold time.Duration
	ShortMessageWords   int
	SweepInterval       time.Duration
	CorrectionWindow    time.Duration
	ConfirmBeforeCommit bool
	RecentSubjects      int
	SnapshotToRedis     bool
	SnapshotTTL         time.Duration
}

type AIConfig struct {
	LLMProvider       string // "ollama", "huggingface" or "rules"
	LLMModel          string
	OllamaBaseURL     string
	HuggingFaceToken  string
	ClassifierTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.json"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Session: SessionConfig{
			AutoCommitAfter:     getEnvAsDuration("SESSION_AUTO_COMMIT_AFTER", 120*time.Second),
			SameBreathWindow:    getEnvAsDuration("SESSION_SAME_BREATH_WINDOW", 30*time.Second),
			InactivityThreshold: getEnvAsDuration("SESSION_INACTIVITY_THRESHOLD", 60*time.Minute),
			ShortMessageWords:   getEnvAsInt("SESSION_SHORT_MESSAGE_WORDS", 8),
			SweepInterval:       getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Second),
			CorrectionWindow:    getEnvAsDuration("SESSION_CORRECTION_WINDOW", 10*time.Minute),
			ConfirmBeforeCommit: getEnvAsBool("SESSION_CONFIRM_BEFORE_COMMIT", false),
			RecentSubjects:      getEnvAsInt("SESSION_RECENT_SUBJECTS", 10),
			SnapshotToRedis:     getEnvAsBool("SESSION_SNAPSHOT_TO_REDIS", false),
			SnapshotTTL:         getEnvAsDuration("SESSION_SNAPSHOT_TTL", 24*time.Hour),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceToken:  getEnv("HUGGINGFACE_API_KEY", ""),
			ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 8*time.Second),
		},
	}
}

// Validate rejects thresholds the conversation engine cannot run with.
func (c *Config) Validate() error {
	s := c.Session
	if s.AutoCommitAfter <= 0 {
		return fmt.Errorf("SESSION_AUTO_COMMIT_AFTER must be positive")
	}
	if s.SameBreathWindow <= 0 {
		return fmt.Errorf("SESSION_SAME_BREATH_WINDOW must be positive")
	}
	if s.InactivityThreshold <= s.SameBreathWindow {
		return fmt.Errorf("SESSION_INACTIVITY_THRESHOLD must exceed the same breath window")
	}
	if s.ShortMessageWords <= 0 {
		return fmt.Errorf("SESSION_SHORT_MESSAGE_WORDS must be positive")
	}
	if s.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if s.CorrectionWindow <= 0 {
		return fmt.Errorf("SESSION_CORRECTION_WINDOW must be positive")
	}
	if s.RecentSubjects <= 0 {
		return fmt.Errorf("SESSION_RECENT_SUBJECTS must be positive")
	}
	if c.Ai.ClassifierTimeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "2m") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
