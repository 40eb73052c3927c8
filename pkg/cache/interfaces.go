// Package cache pkg/cache/interfaces.go
package cache

import (
	"context"
)

//go:generate mockgen -destination=mock_cache.go -package=cache github.com/mfreeman451/compdata/pkg/cache Service

// Service is the consumed contract of the upstream cache: plain
// fetches by OID prefix and rate-converted fetches over a period.
type Service interface {
	// Get returns every cached sample under the OID prefix for the
	// given hosts.
	Get(ctx context.Context, nodes []string, oidmatch string) (Results, error)
	// GetRate returns samples under the prefix with counter values
	// already converted to per-second rates over period seconds.
	GetRate(ctx context.Context, nodes []string, period int, oidmatch string) (Results, error)
}
