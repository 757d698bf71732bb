package hooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned when another locker holds the instance lock
var ErrAlreadyRunning = errors.New("another instance of shroudlock is already running")

// CheckUserPermissions refuses to run as root
func CheckUserPermissions() error {
	if os.Geteuid() == 0 {
		return errors.New("shroudlock should not be run as root for security reasons")
	}
	return nil
}

// EnsureSingleInstance takes an exclusive lock on path. The lock is held
// until release is called or the process exits.
func EnsureSingleInstance(path string) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}, nil
}
