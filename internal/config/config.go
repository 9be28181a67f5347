package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	ModelPath      string
	LabelsPath     string
	ModelInputSize int     // Square input edge of the exported network
	NMSThreshold   float64 // IoU above which overlapping boxes are merged
	Confidence     float64 // Initial threshold, adjustable from the dashboard
	CameraDevice   int
	UploadDir      string
	MaxUploadMB    int64
	UploadMaxAge   time.Duration // Leftover uploads older than this are swept
	DisplayWidth   int           // Streamed frames are scaled down to this width
	JournalDSN     string
	LogDirectory   string
	StaticDir      string
}

// Load reads the configuration from the environment. A .env file in the working
// directory, when present, is loaded first and never overrides variables already set.
func Load() *Config {
	_ = godotenv.Load()

	modelPath := getEnv("MODEL_PATH", filepath.Join(executableDir(), "best.onnx"))

	return &Config{
		Port:           getEnvAsInt("PORT", 8080),
		ModelPath:      modelPath,
		LabelsPath:     getEnv("LABELS_PATH", filepath.Join(filepath.Dir(modelPath), "labels.txt")),
		ModelInputSize: getEnvAsInt("MODEL_INPUT_SIZE", 640),
		NMSThreshold:   getEnvAsFloat("NMS_THRESHOLD", 0.45),
		Confidence:     getEnvAsFloat("CONFIDENCE", 0.40),
		CameraDevice:   getEnvAsInt("CAMERA_DEVICE", 0),
		UploadDir:      getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "sitesafety-uploads")),
		MaxUploadMB:    getEnvAsInt64("MAX_UPLOAD_MB", 200),
		UploadMaxAge:   getEnvAsDuration("UPLOAD_MAX_AGE", time.Hour),
		DisplayWidth:   getEnvAsInt("DISPLAY_WIDTH", 960),
		JournalDSN:     getEnv("JOURNAL_DSN", ":memory:"),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDir:      getEnv("STATIC_DIR", "static"),
	}
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// executableDir returns the directory of the running binary, or "." when unknown.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
