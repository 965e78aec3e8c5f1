package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/unitdesk/form-filer/internal/models"
	"github.com/unitdesk/form-filer/pkg/config"
)

// S3Store maps the hierarchy onto an S3 bucket via MinIO. Folders are
// "/"-terminated prefixes marked with a zero-byte object; moving a file is a
// server-side copy plus delete. A manifest object keeps the file ID -> key
// mapping and the descriptions: S3 user metadata travels in HTTP headers and
// cannot carry the multi-line description text.
type S3Store struct {
	api    *minio.Client
	bucket string
	root   string

	mu    sync.Mutex
	files map[models.FileID]*s3Entry
}

type s3Entry struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

var _ Store = (*S3Store)(nil)

// NewS3Store connects to the configured endpoint and loads the manifest.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to s3: %w", err)
	}

	root := strings.Trim(cfg.RootPrefix, "/")
	if root != "" {
		root += "/"
	}

	s := &S3Store{api: api, bucket: cfg.Bucket, root: root, files: map[models.FileID]*s3Entry{}}
	if err := s.loadManifest(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// RootID returns the folder ID of the configured root prefix.
func (s *S3Store) RootID() models.FolderID {
	return models.FolderID(s.root)
}

// ImportFile uploads a new object under parent and registers it.
func (s *S3Store) ImportFile(ctx context.Context, parent models.FolderID, name string, data []byte) (models.FileID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(parent) + name
	_, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	id := models.FileID(uuid.NewString())
	s.files[id] = &s3Entry{Key: key}
	if err := s.persistManifest(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *S3Store) ResolveFile(ctx context.Context, id models.FileID) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	if _, err := s.api.StatObject(ctx, s.bucket, entry.Key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}
	return &models.FileInfo{
		ID:          id,
		Name:        path.Base(entry.Key),
		Description: entry.Description,
		ParentID:    parentPrefix(entry.Key),
	}, nil
}

func (s *S3Store) ListChildFolders(ctx context.Context, parent models.FolderID, name string) ([]models.FolderInfo, error) {
	want := string(parent) + name + "/"

	opts := minio.ListObjectsOptions{Prefix: string(parent), Recursive: false}
	var matches []models.FolderInfo
	for obj := range s.api.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list folders: %w", obj.Err)
		}
		if obj.Key == want {
			matches = append(matches, models.FolderInfo{
				ID:       models.FolderID(obj.Key),
				Name:     name,
				ParentID: parent,
			})
		}
	}
	return matches, nil
}

func (s *S3Store) CreateChildFolder(ctx context.Context, parent models.FolderID, name string) (*models.FolderInfo, error) {
	key := string(parent) + name + "/"
	_, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return &models.FolderInfo{ID: models.FolderID(key), Name: name, ParentID: parent}, nil
}

func (s *S3Store) MoveFile(ctx context.Context, id models.FileID, dest models.FolderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	return s.relocate(ctx, entry, string(dest)+path.Base(entry.Key))
}

func (s *S3Store) RenameFile(ctx context.Context, id models.FileID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	return s.relocate(ctx, entry, string(parentPrefix(entry.Key))+name)
}

func (s *S3Store) SetFileDescription(ctx context.Context, id models.FileID, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[id]
	if !ok {
		return ErrFileNotFound
	}
	entry.Description = description
	return s.persistManifest(ctx)
}

// relocate copies the object to newKey, deletes the old one and updates the
// manifest. Callers hold the mutex.
func (s *S3Store) relocate(ctx context.Context, entry *s3Entry, newKey string) error {
	if newKey == entry.Key {
		return nil
	}

	src := minio.CopySrcOptions{Bucket: s.bucket, Object: entry.Key}
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: newKey}
	if _, err := s.api.CopyObject(ctx, dst, src); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := s.api.RemoveObject(ctx, s.bucket, entry.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove old file: %w", err)
	}

	entry.Key = newKey
	return s.persistManifest(ctx)
}

func (s *S3Store) manifestKey() string {
	return s.root + manifestName
}

func (s *S3Store) loadManifest(ctx context.Context) error {
	obj, err := s.api.GetObject(ctx, s.bucket, s.manifestKey(), minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("fetch manifest: %w", err)
	}
	defer obj.Close() //nolint:errcheck

	raw, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(raw, &s.files); err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}
	return nil
}

func (s *S3Store) persistManifest(ctx context.Context) error {
	raw, err := json.Marshal(s.files)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	_, err = s.api.PutObject(ctx, s.bucket, s.manifestKey(), bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func parentPrefix(key string) models.FolderID {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return ""
	}
	return models.FolderID(key[:idx+1])
}
