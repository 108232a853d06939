package monitor

import "errors"

// ErrAlreadyStopped indicates an operation on a Monitor after Close.
var ErrAlreadyStopped = errors.New("monitor: already stopped")
