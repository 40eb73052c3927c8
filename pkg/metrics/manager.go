// Package metrics pkg/metrics/manager.go
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 1024

// Manager aggregates request counts and keeps the recent-request
// buffer for the status endpoint.
type Manager struct {
	methods sync.Map // method name -> *methodStats
	buffer  Store
	total   int64
	failed  int64
}

type methodStats struct {
	count  int64
	failed int64
}

// MethodSummary is the per-method slice of a Summary.
type MethodSummary struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
	Failed int64  `json:"failed"`
}

// Summary is the aggregate view served by the status API.
type Summary struct {
	Total   int64           `json:"total"`
	Failed  int64           `json:"failed"`
	Methods []MethodSummary `json:"methods"`
	Recent  []RequestPoint  `json:"recent"`
}

// NewManager creates a Manager with the default buffer size.
func NewManager() *Manager {
	return &Manager{
		buffer: NewBuffer(defaultBufferSize),
	}
}

// Record notes one handled request.
func (m *Manager) Record(method string, duration time.Duration, ok bool) {
	atomic.AddInt64(&m.total, 1)

	if !ok {
		atomic.AddInt64(&m.failed, 1)
	}

	stats, _ := m.methods.LoadOrStore(method, &methodStats{})
	ms := stats.(*methodStats)

	atomic.AddInt64(&ms.count, 1)

	if !ok {
		atomic.AddInt64(&ms.failed, 1)
	}

	m.buffer.Add(time.Now(), duration, method, ok)
}

// Snapshot returns the aggregate counters plus the recent requests.
func (m *Manager) Snapshot() Summary {
	s := Summary{
		Total:   atomic.LoadInt64(&m.total),
		Failed:  atomic.LoadInt64(&m.failed),
		Methods: []MethodSummary{},
		Recent:  m.buffer.GetPoints(),
	}

	m.methods.Range(func(key, value interface{}) bool {
		ms := value.(*methodStats)

		s.Methods = append(s.Methods, MethodSummary{
			Method: key.(string),
			Count:  atomic.LoadInt64(&ms.count),
			Failed: atomic.LoadInt64(&ms.failed),
		})

		return true
	})

	return s
}
