package metrics

import (
	"time"
)

//go:generate mockgen -destination=mock_metrics.go -package=metrics github.com/mfreeman451/compdata/pkg/metrics Store

// Store holds recent request timings.
type Store interface {
	Add(timestamp time.Time, duration time.Duration, method string, ok bool)
	GetPoints() []RequestPoint
}

// RequestPoint is one recorded request.
type RequestPoint struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Method    string        `json:"method"`
	OK        bool          `json:"ok"`
}
