// Package vision holds the model-independent parts of detection: class labels,
// YOLO output decoding and the annotation overlay.
package vision

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Labels maps class ids to display names.
type Labels []string

// LoadLabels reads one label per line from path. Blank lines and lines starting with
// '#' are skipped.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLabels(f)
}

// ReadLabels parses labels from r.
func ReadLabels(r io.Reader) (Labels, error) {
	var labels Labels
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// Name returns the label for id, or class_<id> when it has none.
func (l Labels) Name(id int) string {
	if id >= 0 && id < len(l) {
		return l[id]
	}
	return fmt.Sprintf("class_%d", id)
}
