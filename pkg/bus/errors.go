package bus

import (
	"errors"
)

var (
	errAddressRequired    = errors.New("bus address required")
	errNotConnected       = errors.New("not connected to bus")
	errMethodRegistered   = errors.New("method already registered")
	errNoMethods          = errors.New("no methods registered")
	errEmptyMethod        = errors.New("method name is empty")
	ErrRemote             = errors.New("remote error")
	ErrRequestTimeout     = errors.New("request timed out")
	errHandlerNilResponse = errors.New("handler returned nil response")
)
