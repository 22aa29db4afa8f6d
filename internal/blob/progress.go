package blob

import (
	"io"
	"sync/atomic"
)

// ProgressFunc receives the bytes read so far and the expected total.
type ProgressFunc func(done, total int64)

// ProgressReader wraps an upload body and reports how much has been read.
// With a known total, reports are throttled to whole-percent changes.
type ProgressReader struct {
	r           io.Reader
	total       int64
	done        atomic.Int64
	fn          ProgressFunc
	lastPercent int64
}

// NewProgressReader wraps r. total may be unknown (<= 0), in which case
// every read is reported.
func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn, lastPercent: -1}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.report(p.done.Add(int64(n)))
	}
	return n, err
}

// Done returns the number of bytes read so far.
func (p *ProgressReader) Done() int64 {
	return p.done.Load()
}

func (p *ProgressReader) report(done int64) {
	if p.fn == nil {
		return
	}
	if p.total <= 0 {
		p.fn(done, p.total)
		return
	}

	pct := done * 100 / p.total
	if pct == p.lastPercent {
		return
	}
	p.lastPercent = pct
	p.fn(done, p.total)
}

// Percent converts a byte count to a whole percentage, clamped to 0..100.
func Percent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := done * 100 / total
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
