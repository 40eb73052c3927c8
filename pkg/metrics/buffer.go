// Package metrics pkg/metrics/buffer.go
package metrics

import (
	"sync/atomic"
	"time"
)

// requestPoint is the packed in-buffer form of a RequestPoint.
type requestPoint struct {
	timestamp int64
	duration  int64
	method    string
	ok        bool
}

// LockFreeRingBuffer is a lock-free ring buffer of request timings.
// Writers only advance an atomic cursor, so recording a request never
// blocks the worker.
type LockFreeRingBuffer struct {
	points []requestPoint
	pos    int64 // Atomic position counter
	size   int64
}

// NewBuffer creates a new Store.
func NewBuffer(size int) Store {
	return NewLockFreeBuffer(size)
}

// NewLockFreeBuffer creates a new LockFreeRingBuffer with the
// specified size.
func NewLockFreeBuffer(size int) Store {
	return &LockFreeRingBuffer{
		points: make([]requestPoint, size),
		size:   int64(size),
	}
}

// Add records a request into the buffer.
func (b *LockFreeRingBuffer) Add(timestamp time.Time, duration time.Duration, method string, ok bool) {
	pos := atomic.AddInt64(&b.pos, 1) - 1
	idx := pos % b.size

	b.points[idx] = requestPoint{
		timestamp: timestamp.UnixNano(),
		duration:  int64(duration),
		method:    method,
		ok:        ok,
	}
}

// GetPoints retrieves the recorded requests, newest first. Slots that
// were never written are skipped.
func (b *LockFreeRingBuffer) GetPoints() []RequestPoint {
	pos := atomic.LoadInt64(&b.pos)

	points := make([]RequestPoint, 0, b.size)

	for i := int64(0); i < b.size; i++ {
		idx := (pos - i - 1 + b.size*2) % b.size
		p := b.points[idx]

		if p.timestamp == 0 {
			continue
		}

		points = append(points, RequestPoint{
			Timestamp: time.Unix(0, p.timestamp),
			Duration:  time.Duration(p.duration),
			Method:    p.method,
			OK:        p.ok,
		})
	}

	return points
}
