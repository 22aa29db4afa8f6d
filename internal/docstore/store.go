// Package docstore is a schema-less document store addressed by collection
// paths such as "quizzes" or "courses/{id}/assignments". Documents are JSON.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrInvalidPath is returned for malformed collection paths or ids.
	ErrInvalidPath = errors.New("invalid document path")
)

// Store persists JSON documents grouped by collection.
type Store interface {
	// Create writes doc under collection/id and fails with ErrAlreadyExists
	// if the document is present.
	Create(ctx context.Context, collection, id string, doc any) error
	// Set writes doc under collection/id, replacing any existing document.
	Set(ctx context.Context, collection, id string, doc any) error
	// Get decodes the document into out or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, out any) error
	// Delete removes the document or returns ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
	// List returns every document in collection ordered by id.
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}

// Collection joins path segments into a collection path:
// Collection("courses", "c1", "assignments") = "courses/c1/assignments".
func Collection(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidatePath checks that a collection path has an odd number of non-empty
// segments (collection, doc, collection, ...) and that id is a single segment.
func ValidatePath(collection, id string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: document id %q", ErrInvalidPath, id)
	}
	return nil
}

func validateCollection(collection string) error {
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	segments := strings.Split(collection, "/")
	if len(segments)%2 == 0 {
		return fmt.Errorf("%w: %q names a document, not a collection", ErrInvalidPath, collection)
	}
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, collection)
		}
	}
	return nil
}

// GetAs reads a single document into a new T.
func GetAs[T any](ctx context.Context, s Store, collection, id string) (*T, error) {
	var out T
	if err := s.Get(ctx, collection, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAs decodes every document in collection into T.
func ListAs[T any](ctx context.Context, s Store, collection string) ([]T, error) {
	raw, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}
