package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileSuffix = ".lock"

// DataLock manages a file-based lock for the assignment data directory so
// two concurrent runs cannot write the record files at once.
type DataLock struct {
	lock *flock.Flock
	path string
}

// NewDataLock creates a new lock for the given data directory.
func NewDataLock(dataDir string) (*DataLock, error) {
	absPath, err := GetAbsDataDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute data dir: %w", err)
	}
	lockPath := filepath.Join(absPath, "duesync"+lockFileSuffix)
	return &DataLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the data lock, waiting if necessary.
// It will print a message if it has to wait.
func (l *DataLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		fmt.Fprintf(os.Stderr, "Another duesync process is writing to the data directory, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the data lock.
func (l *DataLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDataDir resolves the data directory path.
func GetAbsDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "duesync"), nil
	}
	return filepath.Abs(dataDir)
}
