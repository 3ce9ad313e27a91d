package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds all environment-driven configuration. Each external
// subsystem (storage, job store, queue) degrades to a local in-process mode
// when its variables are absent.
type Settings struct {
	// app
	AppName string
	Port    int
	Debug   bool

	// database
	DatabaseURL string

	// s3-compatible storage (cloudflare r2)
	S3Endpoint      string
	S3Bucket        string
	S3AccessKeyID   string
	S3SecretKey     string
	S3UseSSL        bool
	LocalStorageDir string

	// redis job store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// task queue (qstash)
	QStashURL       string
	QStashToken     string
	WorkerPublicURL string

	// ai keys (process defaults; per-request BYOK keys take precedence)
	GeminiAPIKey string
	OpenAIAPIKey string

	// server
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads settings from the environment. A .env file is applied first
// if present; real environment variables win.
func Load() *Settings {
	_ = godotenv.Load()

	return &Settings{
		AppName: getEnv("APP_NAME", "brainlattice"),
		Port:    getEnvInt("PORT", 8080),
		Debug:   getEnvBool("DEBUG", false),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		S3Endpoint:      os.Getenv("R2_S3_API_URL"),
		S3Bucket:        getEnv("R2_BUCKET", "pdfs"),
		S3AccessKeyID:   os.Getenv("R2_ACCESS_KEY_ID"),
		S3SecretKey:     os.Getenv("R2_SECRET_ACCESS_KEY"),
		S3UseSSL:        getEnvBool("R2_USE_SSL", true),
		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "./data/blobs"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		QStashURL:       getEnv("QSTASH_URL", "https://qstash.upstash.io"),
		QStashToken:     os.Getenv("QSTASH_TOKEN"),
		WorkerPublicURL: os.Getenv("WORKER_PUBLIC_URL"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),

		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 300*time.Second),
	}
}

// HasS3 reports whether the S3 storage backend is configured.
func (s *Settings) HasS3() bool {
	return s.S3Endpoint != "" && s.S3AccessKeyID != "" && s.S3SecretKey != ""
}

// HasRedis reports whether the redis job store is configured.
func (s *Settings) HasRedis() bool {
	return s.RedisAddr != ""
}

// HasQueue reports whether a real task queue is configured.
func (s *Settings) HasQueue() bool {
	return s.QStashToken != "" && s.WorkerPublicURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
