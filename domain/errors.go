package domain

import "errors"

// ErrNotFound is returned by stores when the addressed document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrConcurrencyConflict indicates that the underlying storage rejected an
// update because a newer version of the document is already persisted.
var ErrConcurrencyConflict = errors.New("concurrency conflict")
