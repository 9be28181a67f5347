package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"sitesafety/internal/config"
	"sitesafety/internal/logger"
)

// SweepInterval defines how often stale uploads are looked for.
const SweepInterval = 5 * time.Minute

// ErrUnsupportedType is returned for uploads whose extension the mode does not accept.
var ErrUnsupportedType = errors.New("unsupported file type")

// Kind is a class of upload.
type Kind int

const (
	KindImage Kind = iota
	KindVideo
)

var extensions = map[Kind][]string{
	KindImage: {".jpg", ".jpeg", ".png"},
	KindVideo: {".mp4", ".avi", ".mov"},
}

// Extensions returns the accepted extensions for kind.
func (k Kind) Extensions() []string {
	return append([]string(nil), extensions[k]...)
}

// CheckExtension returns the lower-cased extension of filename when kind accepts it.
func CheckExtension(filename string, kind Kind) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	accepted := kind.Extensions()
	for _, e := range accepted {
		if e == ext {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w %q (accepted: %s)", ErrUnsupportedType, ext, strings.Join(accepted, ", "))
}

// UploadStore keeps uploaded videos on disk only while the decoder needs them.
type UploadStore struct {
	dir    string
	maxAge time.Duration
	files  map[string]time.Time
	mu     sync.Mutex
	logger *logger.Logger
}

// NewUploadStore creates a store in the configured upload directory.
func NewUploadStore(config *config.Config, logger *logger.Logger) *UploadStore {
	return &UploadStore{
		dir:    config.UploadDir,
		maxAge: config.UploadMaxAge,
		files:  make(map[string]time.Time),
		logger: logger,
	}
}

// Save writes r to a new uniquely named file and returns its path.
func (s *UploadStore) Save(r io.Reader, filename string, kind Kind) (string, error) {
	ext, err := CheckExtension(filename, kind)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}

	s.mu.Lock()
	s.files[path] = time.Now()
	s.mu.Unlock()

	s.logger.Info("Stored upload %s as %s (%d bytes)", filename, filepath.Base(path), n)
	return path, nil
}

// Remove deletes an upload. Removing a file that is already gone is not an error.
func (s *UploadStore) Remove(path string) error {
	s.mu.Lock()
	delete(s.files, path)
	s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// Pending returns how many uploads are still on disk.
func (s *UploadStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *UploadStore) tracked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

// Run starts a ticker loop that sweeps stale uploads until ctx is done.
func (s *UploadStore) Run(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Sweep removes untracked files in the upload directory older than the configured
// age, such as leftovers from earlier sessions. Uploads this store still tracks
// belong to a running analysis and are kept. It returns how many were removed.
func (s *UploadStore) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Error reading upload directory: %v", err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if s.tracked(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) < s.maxAge {
			continue
		}
		if err := s.Remove(path); err != nil {
			s.logger.Error("Error sweeping upload %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Swept %d stale upload(s)", removed)
	}
	return removed
}

// Cleanup removes every upload this store still tracks.
func (s *UploadStore) Cleanup() error {
	s.mu.Lock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	s.mu.Unlock()

	var err error
	for _, p := range paths {
		err = multierr.Append(err, s.Remove(p))
	}
	return err
}
