package store

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint is violated, such as
// creating a second team with the same name.
var ErrDuplicate = errors.New("already exists")
