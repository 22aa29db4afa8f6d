// Package blob stores uploaded course files. Drivers: in-memory, a local
// directory, and Backblaze B2.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned when no object exists under a key.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for empty keys and keys that escape the root.
	ErrInvalidKey = errors.New("invalid blob key")
)

// Object describes a stored blob.
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// Storage stores and removes blobs.
type Storage interface {
	// Put streams r under key. size is the expected length; a negative size
	// means unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
	// URL returns the download URL for key.
	URL(key string) string
}

// Opener is implemented by drivers whose objects are served by this
// process under /files/.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// MaterialKey builds the object key for an uploaded material.
func MaterialKey(courseID, materialID, fileName string) string {
	return "courses/" + courseID + "/materials/" + materialID + "/" + SafeName(fileName)
}

// defaultContentType is served when no stored type is known.
const defaultContentType = "application/octet-stream"

// ValidateKey rejects empty keys, absolute keys, and keys with empty
// segments or segments starting with "." (which covers "." and "..").
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// joinURL appends an escaped key to a base URL.
func joinURL(base, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}

// checkSize compares the number of bytes written against the expected size.
func checkSize(written, size int64) error {
	if size >= 0 && written != size {
		return fmt.Errorf("size mismatch: wrote %d bytes, expected %d", written, size)
	}
	return nil
}
