package storage

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("entity not found")
