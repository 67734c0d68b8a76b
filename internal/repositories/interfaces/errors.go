package interfaces

import "errors"

// ErrNotFound is shared by every repository implementation so services can
// branch without knowing the backing store.
var ErrNotFound = errors.New("record not found")
