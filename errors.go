package assistant

import "github.com/pkg/errors"

// Sentinel errors link implementations return so the engine can surface a
// meaningful return code to the host.
var (
	ErrBusy         = errors.New("resource busy")
	ErrInvalidParam = errors.New("invalid parameter")
	ErrNotFound     = errors.New("not found")
	ErrNotSupported = errors.New("not supported")
)
