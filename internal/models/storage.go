package models

// FileID identifies a stored file. It is stable across move and rename on
// every backend.
type FileID string

// FolderID identifies a storage folder.
type FolderID string

// FileInfo is a snapshot of a stored file's metadata.
type FileInfo struct {
	ID          FileID
	Name        string
	Description string
	ParentID    FolderID
}

// FolderInfo is a snapshot of a storage folder.
type FolderInfo struct {
	ID       FolderID
	Name     string
	ParentID FolderID
}
