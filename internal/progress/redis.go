package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/cache"
)

// RedisTracker stores snapshots in a hash per upload and fans out updates
// through pub/sub, so progress is visible across server instances.
type RedisTracker struct {
	client *redis.Client
}

// NewRedisTracker creates a tracker on an existing client.
func NewRedisTracker(client *redis.Client) (*RedisTracker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisTracker{client: client}, nil
}

// redisSnapshot is the hash layout of a snapshot.
type redisSnapshot struct {
	UploadID   string `redis:"upload_id"`
	OwnerID    string `redis:"owner_id"`
	State      string `redis:"state"`
	BytesDone  int64  `redis:"bytes_done"`
	BytesTotal int64  `redis:"bytes_total"`
	Percent    int    `redis:"percent"`
	Message    string `redis:"message"`
	MaterialID string `redis:"material_id"`
	UpdatedAt  int64  `redis:"updated_at"`
}

func snapshotKey(uploadID string) string { return cache.Key("upload", uploadID) }
func channelName(uploadID string) string { return cache.Key("upload", uploadID, "events") }

func (t *RedisTracker) Update(ctx context.Context, u Update) error {
	if u.UploadID == "" {
		return fmt.Errorf("upload id is empty")
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now()
	}

	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	key := snapshotKey(u.UploadID)
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, redisSnapshot{
			UploadID:   u.UploadID,
			OwnerID:    u.OwnerID,
			State:      string(u.State),
			BytesDone:  u.BytesDone,
			BytesTotal: u.BytesTotal,
			Percent:    u.Percent,
			Message:    u.Message,
			MaterialID: u.MaterialID,
			UpdatedAt:  u.UpdatedAt.UnixMilli(),
		})
		pipe.Expire(ctx, key, snapshotTTL)
		pipe.Publish(ctx, channelName(u.UploadID), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record upload progress: %w", err)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, uploadID string) (Update, error) {
	res := t.client.HGetAll(ctx, snapshotKey(uploadID))
	if err := res.Err(); err != nil {
		return Update{}, fmt.Errorf("get upload progress: %w", err)
	}
	if len(res.Val()) == 0 {
		return Update{}, fmt.Errorf("%w: %s", ErrNotFound, uploadID)
	}

	var snap redisSnapshot
	if err := res.Scan(&snap); err != nil {
		return Update{}, fmt.Errorf("decode upload progress: %w", err)
	}
	return Update{
		UploadID:   snap.UploadID,
		OwnerID:    snap.OwnerID,
		State:      State(snap.State),
		BytesDone:  snap.BytesDone,
		BytesTotal: snap.BytesTotal,
		Percent:    snap.Percent,
		Message:    snap.Message,
		MaterialID: snap.MaterialID,
		UpdatedAt:  time.UnixMilli(snap.UpdatedAt).UTC(),
	}, nil
}

func (t *RedisTracker) Subscribe(ctx context.Context, uploadID string) (<-chan Update, func(), error) {
	pubsub := t.client.Subscribe(ctx, channelName(uploadID))
	// Wait for the subscription before reading the snapshot so no update
	// published in between is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe upload progress: %w", err)
	}

	ch := make(chan Update, subscriberBuffer)

	snap, err := t.Get(ctx, uploadID)
	switch {
	case err == nil:
		ch <- snap
		if snap.Terminal() {
			pubsub.Close()
			close(ch)
			return ch, func() {}, nil
		}
	case !errors.Is(err, ErrNotFound):
		pubsub.Close()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(ch)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var u Update
				if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
					slog.Warn("dropping malformed progress message", "upload_id", uploadID, "error", err)
					continue
				}
				offer(ch, u)
				if u.Terminal() {
					return
				}
			}
		}
	}()

	return ch, cancel, nil
}
