package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"sitesafety/internal/config"
	"sitesafety/internal/logger"
	"sitesafety/internal/pipeline"
	"sitesafety/internal/service"
	"sitesafety/internal/service/ai"
	"sitesafety/internal/service/storage"
)

// options are the command line flags.
type options struct {
	image      string
	model      string
	labels     string
	confidence float64
	out        string
}

func main() {
	cfg := config.Load()

	var opts options
	flag.StringVar(&opts.image, "image", "", "Image to audit (jpg, jpeg, png)")
	flag.StringVar(&opts.model, "model", cfg.ModelPath, "ONNX model path")
	flag.StringVar(&opts.labels, "labels", "", "Class labels file (default: labels.txt next to the model)")
	flag.Float64Var(&opts.confidence, "conf", cfg.Confidence, "Confidence threshold (0-1)")
	flag.StringVar(&opts.out, "out", "", "Write the annotated image here")
	flag.Parse()

	if opts.image == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, opts, os.Stdout); err != nil {
		var loadErr *pipeline.ModelLoadError
		if errors.As(err, &loadErr) {
			log.Fatalf("%v\n%s", err, loadErr.Remediation())
		}
		log.Fatalf("Audit failed: %v", err)
	}
}

// run audits one image and prints the outcome to w. Everything it opens is closed
// before it returns.
func run(cfg *config.Config, opts options, w io.Writer) error {
	if _, err := storage.CheckExtension(opts.image, storage.KindImage); err != nil {
		return fmt.Errorf("cannot audit %s: %w", opts.image, err)
	}

	cfg.ModelPath = opts.model
	cfg.LabelsPath = opts.labels
	if cfg.LabelsPath == "" {
		cfg.LabelsPath = filepath.Join(filepath.Dir(cfg.ModelPath), "labels.txt")
	}

	logs, err := logger.New(cfg.LogDirectory, io.Discard, os.Stderr)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logs.Close()

	session := service.NewSessionConfig(cfg.Confidence)
	if _, err := session.SetConfidence(opts.confidence); err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}

	yolo, err := ai.LoadModel(cfg, logs)
	if err != nil {
		return err
	}
	defer yolo.Close()
	fmt.Fprintf(w, "🤖 Model: %s\n", yolo.Path())

	f, err := os.Open(opts.image)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	controller := pipeline.NewModeController(pipeline.NewFrameProcessor(yolo), session, nil)
	report, err := controller.AuditImage(f)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %s\n", opts.image, report.Message)
	fmt.Fprintf(w, "   Objects detected: %d (threshold %.2f)\n", report.Result.Count, session.Confidence())
	for _, d := range report.Result.Detections {
		b := d.Bounds()
		fmt.Fprintf(w, "      - %s %.2f [%d,%d %dx%d]\n", d.Label, d.Confidence, b.X, b.Y, b.Width, b.Height)
	}

	if opts.out != "" {
		if err := imaging.Save(report.Result.Annotated, opts.out); err != nil {
			return fmt.Errorf("save annotated image: %w", err)
		}
		fmt.Fprintf(w, "✅ Annotated image written to %s\n", opts.out)
	}
	return nil
}
