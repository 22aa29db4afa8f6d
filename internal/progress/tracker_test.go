package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/progress"
)

// receive waits for the next update or fails the test.
func receive(t *testing.T, ch <-chan progress.Update) (progress.Update, bool) {
	t.Helper()
	select {
	case u, ok := <-ch:
		return u, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for progress update")
		return progress.Update{}, false
	}
}

// runTrackerSuite exercises the Tracker contract against one driver.
func runTrackerSuite(t *testing.T, newTracker func(t *testing.T) progress.Tracker) {
	t.Helper()

	t.Run("get unknown upload", func(t *testing.T) {
		tr := newTracker(t)
		_, err := tr.Get(context.Background(), "missing")
		if !errors.Is(err, progress.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("update then get", func(t *testing.T) {
		tr := newTracker(t)
		ctx := context.Background()

		err := tr.Update(ctx, progress.Update{
			UploadID: "u1", State: progress.StateUploading, BytesDone: 50, BytesTotal: 200, Percent: 25,
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := tr.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.State != progress.StateUploading || got.Percent != 25 || got.BytesTotal != 200 {
			t.Errorf("Get() = %+v", got)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set")
		}
	})

	t.Run("empty upload id", func(t *testing.T) {
		tr := newTracker(t)
		if err := tr.Update(context.Background(), progress.Update{State: progress.StatePending}); err == nil {
			t.Error("Update() with empty id should fail")
		}
	})

	t.Run("subscriber sees snapshot then updates until terminal", func(t *testing.T) {
		tr := newTracker(t)
		ctx := context.Background()

		if err := tr.Update(ctx, progress.Update{UploadID: "u2", State: progress.StatePending}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		ch, cancel, err := tr.Subscribe(ctx, "u2")
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		defer cancel()

		first, _ := receive(t, ch)
		if first.State != progress.StatePending {
			t.Errorf("first update state = %q, want pending", first.State)
		}

		if err := tr.Update(ctx, progress.Update{UploadID: "u2", State: progress.StateCompleted, Percent: 100, MaterialID: "m1"}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		last, ok := receive(t, ch)
		if !ok || last.State != progress.StateCompleted || last.MaterialID != "m1" {
			t.Errorf("terminal update = %+v (ok=%v)", last, ok)
		}
		if _, ok := receive(t, ch); ok {
			t.Error("channel should be closed after terminal update")
		}
	})

	t.Run("subscribe after completion", func(t *testing.T) {
		tr := newTracker(t)
		ctx := context.Background()

		if err := tr.Update(ctx, progress.Update{UploadID: "u3", State: progress.StateFailed, Message: "disk full"}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		ch, cancel, err := tr.Subscribe(ctx, "u3")
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		defer cancel()

		u, ok := receive(t, ch)
		if !ok || u.State != progress.StateFailed || u.Message != "disk full" {
			t.Errorf("update = %+v (ok=%v)", u, ok)
		}
		if _, ok := receive(t, ch); ok {
			t.Error("channel should be closed")
		}
	})

	t.Run("cancel closes channel", func(t *testing.T) {
		tr := newTracker(t)
		ch, cancel, err := tr.Subscribe(context.Background(), "u4")
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		cancel()
		if _, ok := receive(t, ch); ok {
			t.Error("channel should be closed after cancel")
		}
	})
}

func TestMemoryTracker(t *testing.T) {
	runTrackerSuite(t, func(t *testing.T) progress.Tracker {
		return progress.NewMemoryTracker()
	})
}

func TestMemoryTracker_ContextCancelClosesChannel(t *testing.T) {
	tr := progress.NewMemoryTracker()
	ctx, cancel := context.WithCancel(context.Background())

	ch, stop, err := tr.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer stop()

	cancel()
	if _, ok := receive(t, ch); ok {
		t.Error("channel should be closed after context cancel")
	}
}

func TestMemoryTracker_SlowSubscriberStillGetsTerminal(t *testing.T) {
	tr := progress.NewMemoryTracker()
	ctx := context.Background()

	ch, cancel, err := tr.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	for i := range 100 {
		_ = tr.Update(ctx, progress.Update{UploadID: "u1", State: progress.StateUploading, Percent: i})
	}
	_ = tr.Update(ctx, progress.Update{UploadID: "u1", State: progress.StateCompleted, Percent: 100})

	var last progress.Update
	for u := range ch {
		last = u
	}
	if last.State != progress.StateCompleted {
		t.Errorf("last update = %+v, want completed", last)
	}
}

func TestUpdate_Terminal(t *testing.T) {
	tests := []struct {
		state progress.State
		want  bool
	}{
		{progress.StatePending, false},
		{progress.StateUploading, false},
		{progress.StateCompleted, true},
		{progress.StateFailed, true},
	}
	for _, tt := range tests {
		if got := (progress.Update{State: tt.state}).Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.state, got, tt.want)
		}
	}
}
