package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// BoltStore keeps documents in a bbolt file, one bucket per collection path.
// bbolt iterates keys in byte order, which gives List its id ordering.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Create(_ context.Context, collection, id string, doc any) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", collection, err)
		}
		if b.Get([]byte(id)) != nil {
			return fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) Set(_ context.Context, collection, id string, doc any) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", collection, err)
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) Get(_ context.Context, collection, id string, out any) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}

	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		// v is only valid inside the transaction; Unmarshal copies.
		return json.Unmarshal(v, out)
	})
}

func (s *BoltStore) Delete(_ context.Context, collection, id string) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil || b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) List(_ context.Context, collection string) ([]json.RawMessage, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	var out []json.RawMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			out = append(out, json.RawMessage(append([]byte(nil), v...)))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if out == nil {
		out = []json.RawMessage{}
	}
	return out, nil
}

// Ping runs an empty read transaction.
func (s *BoltStore) Ping(context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
