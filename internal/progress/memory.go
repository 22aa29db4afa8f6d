package progress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryTracker keeps snapshots and subscribers in process.
type MemoryTracker struct {
	mu        sync.Mutex
	snapshots map[string]Update
	subs      map[string]map[int]chan Update
	nextID    int
	now       func() time.Time
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		snapshots: make(map[string]Update),
		subs:      make(map[string]map[int]chan Update),
		now:       time.Now,
	}
}

// WithClock replaces the clock used for timestamps and expiry.
func (t *MemoryTracker) WithClock(now func() time.Time) *MemoryTracker {
	t.now = now
	return t
}

func (t *MemoryTracker) Update(_ context.Context, u Update) error {
	if u.UploadID == "" {
		return fmt.Errorf("upload id is empty")
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshots[u.UploadID] = u
	t.evictExpired()

	for id, ch := range t.subs[u.UploadID] {
		offer(ch, u)
		if u.Terminal() {
			close(ch)
			delete(t.subs[u.UploadID], id)
		}
	}
	if len(t.subs[u.UploadID]) == 0 {
		delete(t.subs, u.UploadID)
	}
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, uploadID string) (Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.snapshots[uploadID]
	if !ok || t.expired(u) {
		return Update{}, fmt.Errorf("%w: %s", ErrNotFound, uploadID)
	}
	return u, nil
}

func (t *MemoryTracker) Subscribe(ctx context.Context, uploadID string) (<-chan Update, func(), error) {
	ch := make(chan Update, subscriberBuffer)

	t.mu.Lock()
	snap, ok := t.snapshots[uploadID]
	if ok {
		ch <- snap
		if snap.Terminal() {
			t.mu.Unlock()
			close(ch)
			return ch, func() {}, nil
		}
	}

	id := t.nextID
	t.nextID++
	if t.subs[uploadID] == nil {
		t.subs[uploadID] = make(map[int]chan Update)
	}
	t.subs[uploadID][id] = ch
	t.mu.Unlock()

	remove := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[uploadID][id]; ok {
			close(c)
			delete(t.subs[uploadID], id)
		}
	}
	stop := context.AfterFunc(ctx, remove)

	return ch, func() {
		stop()
		remove()
	}, nil
}

func (t *MemoryTracker) expired(u Update) bool {
	return u.Terminal() && t.now().Sub(u.UpdatedAt) > snapshotTTL
}

// evictExpired drops finished snapshots older than snapshotTTL. Callers
// hold t.mu.
func (t *MemoryTracker) evictExpired() {
	for id, u := range t.snapshots {
		if t.expired(u) {
			delete(t.snapshots, id)
		}
	}
}
