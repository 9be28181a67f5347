package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"sitesafety/internal/config"
	"sitesafety/internal/logger"
	"sitesafety/internal/model"
	"sitesafety/internal/pipeline"
	"sitesafety/internal/service/vision"
)

// paletteSize is used when no labels file tells how many classes the model has.
const paletteSize = 8

// YOLOModel runs a YOLOv8 ONNX export through OpenCV's DNN module. It implements
// pipeline.Model. Forward passes are serialised; the network is not safe for
// concurrent use.
type YOLOModel struct {
	net       gocv.Net
	mu        sync.Mutex
	inputSize image.Point
	nms       float32
	labels    vision.Labels
	overlay   *vision.Overlay
	path      string
	logger    *logger.Logger
}

// LoadModel loads the network at cfg.ModelPath. Any failure is a
// *pipeline.ModelLoadError naming the expected path.
func LoadModel(cfg *config.Config, logger *logger.Logger) (*YOLOModel, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, &pipeline.ModelLoadError{Path: cfg.ModelPath, Err: err}
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, &pipeline.ModelLoadError{Path: cfg.ModelPath, Err: errors.New("network could not be read")}
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, &pipeline.ModelLoadError{Path: cfg.ModelPath, Err: errors.New("failed to set preferable backend or target")}
	}

	labels, err := vision.LoadLabels(cfg.LabelsPath)
	if err != nil {
		logger.Warning("No class labels loaded from %s: %v", cfg.LabelsPath, err)
	}
	classes := len(labels)
	if classes == 0 {
		classes = paletteSize
	}

	logger.Info("Detection model loaded from %s (%d labels)", cfg.ModelPath, len(labels))
	return &YOLOModel{
		net:       net,
		inputSize: image.Pt(cfg.ModelInputSize, cfg.ModelInputSize),
		nms:       float32(cfg.NMSThreshold),
		labels:    labels,
		overlay:   vision.NewOverlay(classes),
		path:      cfg.ModelPath,
		logger:    logger,
	}, nil
}

// Path returns the file the model was loaded from.
func (m *YOLOModel) Path() string {
	return m.path
}

// Detect runs one forward pass and returns the detections at or above confidence,
// after non-maximum suppression, highest confidence first.
func (m *YOLOModel) Detect(frame image.Image, confidence float64) ([]model.Detection, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("converted frame is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, m.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	m.mu.Unlock()
	defer output.Close()

	// [1, 4+classes, anchors]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output dimensions %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scaleX := float32(mat.Cols()) / float32(m.inputSize.X)
	scaleY := float32(mat.Rows()) / float32(m.inputSize.Y)
	bounds := image.Rect(0, 0, mat.Cols(), mat.Rows())

	candidates, err := vision.DecodeYOLOv8(data, dims[1], dims[2], scaleX, scaleY, float32(confidence), bounds)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []model.Detection{}, nil
	}
	if origin := frame.Bounds().Min; origin != (image.Point{}) {
		for i := range candidates {
			candidates[i].Box = candidates[i].Box.Add(origin)
		}
	}

	boxes, scores := vision.Boxes(candidates)
	keep := gocv.NMSBoxes(boxes, scores, float32(confidence), m.nms)

	return vision.Detections(candidates, keep, m.labels), nil
}

// Render draws the detections onto a copy of frame.
func (m *YOLOModel) Render(frame image.Image, detections []model.Detection) (image.Image, error) {
	return m.overlay.Render(frame, detections)
}

// Close releases the network.
func (m *YOLOModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}
