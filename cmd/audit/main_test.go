package main

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"sitesafety/internal/config"
	"sitesafety/internal/pipeline"
	"sitesafety/internal/service/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Confidence:     0.40,
		ModelInputSize: 640,
		NMSThreshold:   0.45,
		LogDirectory:   filepath.Join(t.TempDir(), "logs"),
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "site.png")
	if err := os.WriteFile(image, []byte("not decoded before the model loads"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	missingModel := filepath.Join(dir, "best.onnx")

	tests := []struct {
		name  string
		opts  options
		check func(error) bool
	}{
		{
			name:  "unsupported type",
			opts:  options{image: "site.gif", model: missingModel, confidence: 0.4},
			check: func(err error) bool { return errors.Is(err, storage.ErrUnsupportedType) },
		},
		{
			name:  "invalid threshold",
			opts:  options{image: image, model: missingModel, confidence: math.NaN()},
			check: func(err error) bool { return err != nil },
		},
		{
			name: "missing model",
			opts: options{image: image, model: missingModel, confidence: 0.4},
			check: func(err error) bool {
				var loadErr *pipeline.ModelLoadError
				return errors.As(err, &loadErr) && loadErr.Path == missingModel
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(testConfig(t), tc.opts, &out)
			if !tc.check(err) {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.Len() != 0 {
				t.Errorf("Nothing should be printed on failure, got %q", out.String())
			}
		})
	}
}

func TestRun_DefaultLabelsNextToModel(t *testing.T) {
	cfg := testConfig(t)
	model := filepath.Join(t.TempDir(), "weights", "best.onnx")

	run(cfg, options{image: "site.jpg", model: model, confidence: 0.4}, &bytes.Buffer{})

	if want := filepath.Join(filepath.Dir(model), "labels.txt"); cfg.LabelsPath != want {
		t.Errorf("Expected labels at %s, got %s", want, cfg.LabelsPath)
	}
}
