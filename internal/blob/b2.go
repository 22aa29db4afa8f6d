package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Storage stores blobs in a Backblaze B2 bucket.
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

// NewB2Storage authorizes against B2 and opens the named bucket.
func NewB2Storage(ctx context.Context, keyID, appKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("open b2 bucket %q: %w", bucketName, err)
	}

	return &B2Storage{client: client, bucket: bucket}, nil
}

func (s *B2Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, err
	}

	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))

	n, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return Object{}, fmt.Errorf("write b2 object: %w", err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("close b2 writer: %w", err)
	}
	if err := checkSize(n, size); err != nil {
		_ = obj.Delete(ctx)
		return Object{}, err
	}

	return Object{Key: key, URL: obj.URL(), Size: n, ContentType: contentType}, nil
}

func (s *B2Storage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("delete b2 object: %w", err)
	}
	return nil
}

func (s *B2Storage) URL(key string) string {
	return s.bucket.Object(key).URL()
}
