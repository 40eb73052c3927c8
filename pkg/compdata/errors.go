package compdata

import "errors"

var (
	errNoDefaultInstance  = errors.New("composite has no default instance")
	errNodeRequired       = errors.New("node parameter is required")
	errMissingInput       = errors.New("required input missing")
	errInvalidPeriod      = errors.New("period must be a number")
	errUnknownScanVar     = errors.New("val references unknown scan")
	errUnknownFunction    = errors.New("unknown function")
	errNilCacheClient     = errors.New("cache client is nil")
	errNoComposites       = errors.New("no composites configured")
	errBusAddressRequired = errors.New("bus address is required")
	errCompositesRequired = errors.New("composites path is required")
)
