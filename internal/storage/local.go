package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/unitdesk/form-filer/internal/models"
)

const manifestName = ".manifest.json"

// LocalStore keeps the hierarchy as real directories under a base directory.
// Folder IDs are slash-separated paths relative to the base ("." is the
// root). File IDs are opaque; a JSON manifest next to the tree maps them to
// their current path and holds descriptions, so moves and renames never
// change a file's identity.
type LocalStore struct {
	baseDir string

	mu    sync.Mutex
	files map[models.FileID]*localEntry
}

type localEntry struct {
	RelPath     string `json:"relPath"`
	Description string `json:"description,omitempty"`
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore ensures the base directory exists and loads the manifest.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./intake"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create intake directory: %w", err)
	}

	s := &LocalStore{baseDir: baseDir, files: map[models.FileID]*localEntry{}}

	raw, err := os.ReadFile(filepath.Join(baseDir, manifestName))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read manifest: %w", err)
	default:
		if err := json.Unmarshal(raw, &s.files); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
	}

	return s, nil
}

// RootID returns the folder ID of the base directory.
func (s *LocalStore) RootID() models.FolderID {
	return "."
}

// ImportFile writes a new file under parent and registers it in the
// manifest. This is how attachments enter the tree before processing.
func (s *LocalStore) ImportFile(parent models.FolderID, name string, data []byte) (models.FileID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel := path.Join(string(parent), name)
	target := s.resolve(rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare parent directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	id := models.FileID(uuid.NewString())
	s.files[id] = &localEntry{RelPath: rel}
	if err := s.persistManifest(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *LocalStore) ResolveFile(ctx context.Context, id models.FileID) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	return &models.FileInfo{
		ID:          id,
		Name:        path.Base(entry.RelPath),
		Description: entry.Description,
		ParentID:    models.FolderID(path.Dir(entry.RelPath)),
	}, nil
}

func (s *LocalStore) ListChildFolders(ctx context.Context, parent models.FolderID, name string) ([]models.FolderInfo, error) {
	entries, err := os.ReadDir(s.resolve(string(parent)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("list folders: %w", err)
	}

	var matches []models.FolderInfo
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() == name {
			matches = append(matches, models.FolderInfo{
				ID:       models.FolderID(path.Join(string(parent), name)),
				Name:     name,
				ParentID: parent,
			})
		}
	}
	return matches, nil
}

func (s *LocalStore) CreateChildFolder(ctx context.Context, parent models.FolderID, name string) (*models.FolderInfo, error) {
	rel := path.Join(string(parent), name)
	if err := os.MkdirAll(s.resolve(rel), 0o755); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return &models.FolderInfo{ID: models.FolderID(rel), Name: name, ParentID: parent}, nil
}

func (s *LocalStore) MoveFile(ctx context.Context, id models.FileID, dest models.FolderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	rel := path.Join(string(dest), path.Base(entry.RelPath))
	if err := os.Rename(s.resolve(entry.RelPath), s.resolve(rel)); err != nil {
		return fmt.Errorf("move file: %w", err)
	}
	entry.RelPath = rel
	return s.persistManifest()
}

func (s *LocalStore) RenameFile(ctx context.Context, id models.FileID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	rel := path.Join(path.Dir(entry.RelPath), name)
	if err := os.Rename(s.resolve(entry.RelPath), s.resolve(rel)); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	entry.RelPath = rel
	return s.persistManifest()
}

func (s *LocalStore) SetFileDescription(ctx context.Context, id models.FileID, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	entry.Description = description
	return s.persistManifest()
}

func (s *LocalStore) resolve(rel string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(rel))
}

func (s *LocalStore) persistManifest() error {
	raw, err := json.MarshalIndent(s.files, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.baseDir, manifestName), raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
