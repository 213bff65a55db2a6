package store

import "errors"

// ErrContactNotFound is returned by contact lookups for unknown or foreign references.
var ErrContactNotFound = errors.New("contact not found")
