// Package progress tracks material upload progress so clients can poll it
// or follow it over a websocket.
package progress

import (
	"context"
	"errors"
	"time"
)

// State is the lifecycle state of an upload.
type State string

const (
	StatePending   State = "pending"
	StateUploading State = "uploading"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrNotFound is returned for unknown or expired upload ids.
var ErrNotFound = errors.New("upload not found")

// Update is a progress snapshot for one upload. OwnerID is the user who
// started the upload.
type Update struct {
	UploadID   string    `json:"upload_id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	State      State     `json:"state"`
	BytesDone  int64     `json:"bytes_done"`
	BytesTotal int64     `json:"bytes_total"`
	Percent    int       `json:"percent"`
	Message    string    `json:"message,omitempty"`
	MaterialID string    `json:"material_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether no further updates follow.
func (u Update) Terminal() bool {
	return u.State == StateCompleted || u.State == StateFailed
}

// Tracker records and fans out upload progress.
type Tracker interface {
	Update(ctx context.Context, u Update) error
	Get(ctx context.Context, uploadID string) (Update, error)
	// Subscribe returns a channel that first receives the current snapshot
	// (if any) and then every later update. The channel is closed after a
	// terminal update or when ctx is done. Call the returned func to stop
	// early.
	Subscribe(ctx context.Context, uploadID string) (<-chan Update, func(), error)
}

// subscriberBuffer is the channel capacity per subscriber.
const subscriberBuffer = 16

// snapshotTTL bounds how long finished uploads stay visible.
const snapshotTTL = time.Hour

// offer sends u without blocking. Intermediate updates are dropped when
// the subscriber is behind; a terminal update evicts the oldest queued one.
func offer(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	if !u.Terminal() {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
