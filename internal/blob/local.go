package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// metaDir holds one sidecar file per blob with its stored content type.
// ValidateKey rejects dot segments, so no key can reach it.
const metaDir = ".meta"

// LocalStorage keeps blobs as files under a root directory. The server
// serves them under /files/ with the content type recorded at Put.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, err
	}

	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, fmt.Errorf("write blob: %w", err)
	}
	if err := checkSize(n, size); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	if err := s.writeContentType(key, contentType); err != nil {
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(s.metaPath(key))
		return Object{}, fmt.Errorf("move blob into place: %w", err)
	}

	return Object{Key: key, URL: s.URL(key), Size: n, ContentType: contentType}, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if err := os.Remove(s.metaPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob metadata: %w", err)
	}
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return joinURL(s.baseURL, key)
}

// Open returns the file for key and the content type it was stored with.
// The file extension is never consulted.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, "", err
	}
	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open blob: %w", err)
	}
	return f, s.readContentType(key), nil
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStorage) metaPath(key string) string {
	return filepath.Join(s.root, metaDir, filepath.FromSlash(key)+".type")
}

func (s *LocalStorage) writeContentType(key, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	p := s.metaPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create blob metadata dir: %w", err)
	}
	if err := os.WriteFile(p, []byte(contentType), 0o644); err != nil {
		return fmt.Errorf("write blob metadata: %w", err)
	}
	return nil
}

// readContentType falls back to application/octet-stream when the sidecar
// is missing or unreadable.
func (s *LocalStorage) readContentType(key string) string {
	b, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		return defaultContentType
	}
	if ct := strings.TrimSpace(string(b)); ct != "" {
		return ct
	}
	return defaultContentType
}
