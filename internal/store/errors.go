package store

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrLoginConflict indicates the login is already taken by another user
	ErrLoginConflict = errors.New("login already taken")

	// ErrUnsupportedDriver indicates a database driver name the store
	// does not know how to open
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
