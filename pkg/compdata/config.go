// Package compdata pkg/compdata/config.go
package compdata

import (
	"time"

	"github.com/mfreeman451/compdata/pkg/config"
)

const (
	defaultPeriod         = 60
	defaultWorkers        = 4
	defaultSubjectPrefix  = "compdata"
	defaultCachePrefix    = "data"
	defaultRequestTimeout = 15 * time.Second
)

// Config represents the worker configuration.
type Config struct {
	BusAddress     string          `json:"bus_address"`
	SubjectPrefix  string          `json:"subject_prefix"`
	CachePrefix    string          `json:"cache_prefix"`
	Composites     string          `json:"composites"`
	Workers        int             `json:"workers"`
	RequestTimeout config.Duration `json:"request_timeout"`
	ListenAddr     string          `json:"listen_addr"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.BusAddress == "" {
		return errBusAddressRequired
	}

	if c.Composites == "" {
		return errCompositesRequired
	}

	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaultSubjectPrefix
	}

	if c.CachePrefix == "" {
		c.CachePrefix = defaultCachePrefix
	}

	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	if time.Duration(c.RequestTimeout) == 0 {
		c.RequestTimeout = config.Duration(defaultRequestTimeout)
	}

	return nil
}
