package artifact

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// FileStore writes artifacts as files under a directory.
type FileStore struct {
	dir string

	mu    sync.RWMutex
	paths map[string]string
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileStore{dir: dir, paths: make(map[string]string)}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Put(ctx context.Context, data []byte, mimeType, sourceURI string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("artifact is empty")
	}

	detected := mimetype.Detect(data)
	if mimeType == "" {
		mimeType = detected.String()
	}
	ext := detected.Extension()
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id+ext)

	tmp, err := os.CreateTemp(s.dir, id+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write artifact file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close artifact file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("rename artifact file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	s.mu.Lock()
	s.paths[id] = path
	s.mu.Unlock()

	return &Handle{
		ID:        id,
		URI:       (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		MIMEType:  mimeType,
		Size:      int64(len(data)),
		SourceURI: sourceURI,
		CreatedAt: time.Now(),
	}, nil
}

func (s *FileStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	s.mu.RLock()
	path, ok := s.paths[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return os.Open(path)
}

func (s *FileStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	path, ok := s.paths[id]
	delete(s.paths, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact file: %w", err)
	}
	return nil
}

// Path returns the file backing id.
func (s *FileStore) Path(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.paths[id]
	return path, ok
}
