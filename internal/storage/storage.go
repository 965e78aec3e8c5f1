package storage

import (
	"context"
	"errors"

	"github.com/unitdesk/form-filer/internal/models"
)

var (
	// ErrFileNotFound is returned when a file ID cannot be resolved.
	ErrFileNotFound = errors.New("storage: file not found")
	// ErrFolderNotFound is returned when a folder ID does not exist.
	ErrFolderNotFound = errors.New("storage: folder not found")
)

// Store is the narrow port the intake pipeline uses to manipulate the
// attachment hierarchy. ListChildFolders followed by CreateChildFolder is not
// atomic: two callers racing the same parent/name pair can both create a
// folder with that name. None of the backends offer create-if-absent, so the
// race is accepted rather than papered over.
type Store interface {
	ResolveFile(ctx context.Context, id models.FileID) (*models.FileInfo, error)
	ListChildFolders(ctx context.Context, parent models.FolderID, name string) ([]models.FolderInfo, error)
	CreateChildFolder(ctx context.Context, parent models.FolderID, name string) (*models.FolderInfo, error)
	MoveFile(ctx context.Context, id models.FileID, dest models.FolderID) error
	RenameFile(ctx context.Context, id models.FileID, name string) error
	SetFileDescription(ctx context.Context, id models.FileID, description string) error
}
