package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/unitdesk/form-filer/internal/models"
)

// MemoryStore keeps the folder/file hierarchy in process memory. It backs the
// service in development and stands in for a real backend in tests.
type MemoryStore struct {
	mu      sync.Mutex
	root    models.FolderID
	files   map[models.FileID]*models.FileInfo
	folders map[models.FolderID]*models.FolderInfo
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store with a single root folder.
func NewMemoryStore() *MemoryStore {
	root := models.FolderID(uuid.NewString())
	return &MemoryStore{
		root: root,
		files: map[models.FileID]*models.FileInfo{},
		folders: map[models.FolderID]*models.FolderInfo{
			root: {ID: root, Name: "root"},
		},
	}
}

// RootID returns the ID of the root folder.
func (s *MemoryStore) RootID() models.FolderID {
	return s.root
}

// AddFolder creates a folder under parent and returns its ID. Used to seed
// state before processing.
func (s *MemoryStore) AddFolder(parent models.FolderID, name string) models.FolderID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := models.FolderID(uuid.NewString())
	s.folders[id] = &models.FolderInfo{ID: id, Name: name, ParentID: parent}
	return id
}

// AddFile places a file with the given name under parent and returns its ID.
func (s *MemoryStore) AddFile(parent models.FolderID, name string) models.FileID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := models.FileID(uuid.NewString())
	s.files[id] = &models.FileInfo{ID: id, Name: name, ParentID: parent}
	return id
}

func (s *MemoryStore) ResolveFile(ctx context.Context, id models.FileID) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	snapshot := *file
	return &snapshot, nil
}

func (s *MemoryStore) ListChildFolders(ctx context.Context, parent models.FolderID, name string) ([]models.FolderInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[parent]; !ok {
		return nil, ErrFolderNotFound
	}
	var matches []models.FolderInfo
	for _, folder := range s.folders {
		if folder.ParentID == parent && folder.Name == name {
			matches = append(matches, *folder)
		}
	}
	return matches, nil
}

func (s *MemoryStore) CreateChildFolder(ctx context.Context, parent models.FolderID, name string) (*models.FolderInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[parent]; !ok {
		return nil, ErrFolderNotFound
	}
	id := models.FolderID(uuid.NewString())
	folder := &models.FolderInfo{ID: id, Name: name, ParentID: parent}
	s.folders[id] = folder
	snapshot := *folder
	return &snapshot, nil
}

func (s *MemoryStore) MoveFile(ctx context.Context, id models.FileID, dest models.FolderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	if _, ok := s.folders[dest]; !ok {
		return ErrFolderNotFound
	}
	file.ParentID = dest
	return nil
}

func (s *MemoryStore) RenameFile(ctx context.Context, id models.FileID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	file.Name = name
	return nil
}

func (s *MemoryStore) SetFileDescription(ctx context.Context, id models.FileID, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	file.Description = description
	return nil
}

// ChildFolders lists every folder under parent regardless of name. Test
// helper, not part of the Store port.
func (s *MemoryStore) ChildFolders(parent models.FolderID) []models.FolderInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var children []models.FolderInfo
	for _, folder := range s.folders {
		if folder.ParentID == parent {
			children = append(children, *folder)
		}
	}
	return children
}
