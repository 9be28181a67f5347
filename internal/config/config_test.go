package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "MODEL_PATH", "LABELS_PATH", "CONFIDENCE", "NMS_THRESHOLD", "CAMERA_DEVICE", "UPLOAD_MAX_AGE", "JOURNAL_DSN"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.Confidence != 0.40 {
		t.Errorf("Expected confidence 0.40, got %v", cfg.Confidence)
	}
	if cfg.NMSThreshold != 0.45 {
		t.Errorf("Expected NMS threshold 0.45, got %v", cfg.NMSThreshold)
	}
	if cfg.CameraDevice != 0 {
		t.Errorf("Expected camera device 0, got %d", cfg.CameraDevice)
	}
	if filepath.Base(cfg.ModelPath) != "best.onnx" {
		t.Errorf("Expected best.onnx, got %s", cfg.ModelPath)
	}
	if cfg.LabelsPath != filepath.Join(filepath.Dir(cfg.ModelPath), "labels.txt") {
		t.Errorf("Expected labels next to the model, got %s", cfg.LabelsPath)
	}
	if cfg.UploadMaxAge != time.Hour {
		t.Errorf("Expected 1h upload max age, got %v", cfg.UploadMaxAge)
	}
	if cfg.JournalDSN != ":memory:" {
		t.Errorf("Expected in-memory journal, got %s", cfg.JournalDSN)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_PATH", "/models/ppe.onnx")
	t.Setenv("LABELS_PATH", "")
	t.Setenv("CONFIDENCE", "0.65")
	t.Setenv("MAX_UPLOAD_MB", "10")
	t.Setenv("UPLOAD_MAX_AGE", "15m")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.LabelsPath != filepath.Join("/models", "labels.txt") {
		t.Errorf("Expected labels next to overridden model, got %s", cfg.LabelsPath)
	}
	if cfg.Confidence != 0.65 {
		t.Errorf("Expected confidence 0.65, got %v", cfg.Confidence)
	}
	if cfg.MaxUploadBytes() != 10<<20 {
		t.Errorf("Expected 10 MiB, got %d", cfg.MaxUploadBytes())
	}
	if cfg.UploadMaxAge != 15*time.Minute {
		t.Errorf("Expected 15m, got %v", cfg.UploadMaxAge)
	}
}

func TestGetEnvHelpers_InvalidFallBack(t *testing.T) {
	t.Setenv("BAD_INT", "12abc")
	t.Setenv("BAD_FLOAT", "zero point four")
	t.Setenv("BAD_DURATION", "soon")

	if got := getEnvAsInt("BAD_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt = %d, expected 7", got)
	}
	if got := getEnvAsFloat("BAD_FLOAT", 0.4); got != 0.4 {
		t.Errorf("getEnvAsFloat = %v, expected 0.4", got)
	}
	if got := getEnvAsDuration("BAD_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvAsDuration = %v, expected 1m", got)
	}
}
