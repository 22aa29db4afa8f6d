package blob_test

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
)

func TestProgressReader_ReportsWholePercents(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)

	var reports []int64
	pr := blob.NewProgressReader(iotest.OneByteReader(bytes.NewReader(data)), int64(len(data)), func(done, total int64) {
		reports = append(reports, done)
	})

	n, err := io.Copy(io.Discard, pr)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if n != 1000 || pr.Done() != 1000 {
		t.Fatalf("copied %d, Done() = %d, want 1000", n, pr.Done())
	}

	// 1 byte = 0%, then each 10 bytes moves one percent: 0..100.
	if len(reports) != 101 {
		t.Errorf("got %d reports, want 101", len(reports))
	}
	if last := reports[len(reports)-1]; last != 1000 {
		t.Errorf("last report = %d, want 1000", last)
	}
}

func TestProgressReader_UnknownTotal(t *testing.T) {
	calls := 0
	pr := blob.NewProgressReader(iotest.OneByteReader(bytes.NewReader([]byte("abc"))), 0, func(done, total int64) {
		calls++
	})

	if _, err := io.Copy(io.Discard, pr); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total int64
		want        int
	}{
		{0, 100, 0},
		{50, 200, 25},
		{200, 100, 100},
		{5, 0, 0},
	}

	for _, tt := range tests {
		if got := blob.Percent(tt.done, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}
