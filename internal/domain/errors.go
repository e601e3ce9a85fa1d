package domain

import "errors"

var (
	// ErrNoActiveWindow means the platform reported no foreground window.
	ErrNoActiveWindow = errors.New("no active window")

	// ErrCategoryNotFound means a category id does not exist in the directory.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrInvalidInput covers malformed arguments (empty names, negative goals, bad ranges).
	ErrInvalidInput = errors.New("invalid input")

	// ErrLockUnavailable means a resource lock could not be acquired for this call.
	ErrLockUnavailable = errors.New("resource lock unavailable")

	// ErrNotRunning means no live tracker daemon is registered.
	ErrNotRunning = errors.New("tracker daemon not running")

	// ErrBackupNotFound means no backup with the requested id exists.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrBackupCorrupt means a backup file no longer matches its manifest.
	ErrBackupCorrupt = errors.New("backup corrupt")
)
