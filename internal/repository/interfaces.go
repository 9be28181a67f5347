package repository

import (
	"errors"

	"sitesafety/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// RunRepository defines the interface for the session run journal.
type RunRepository interface {
	// Create operations
	Insert(run *model.Run) error

	// Update operations
	Update(run *model.Run) error

	// Read operations
	GetByID(id string) (*model.Run, error)
	GetRecent(limit int) ([]model.Run, error)

	// Delete operations
	DeleteAll() error
}
