// Package store persists the canonical active and archived sets as two JSON
// files. Every save writes a complete snapshot to a temp file and renames it
// into place, so a crash never leaves a partially written store behind.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/duesync/duesync/pkg/assignment"
)

const (
	activeFile  = "assignments.json"
	archiveFile = "assignments_archive.json"
)

// Archive is the on-disk shape of the archive file.
type Archive struct {
	CreatedDate   string                    `json:"created_date"`
	LastCleanup   string                    `json:"last_cleanup,omitempty"`
	TotalArchived int                       `json:"total_archived"`
	Assignments   []assignment.ArchiveEntry `json:"assignments"`
}

type Store struct {
	dir string
}

// Open prepares the data directory, creating empty active and archive files
// when missing.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir}
	if _, err := os.Stat(s.activePath()); os.IsNotExist(err) {
		if err := s.SaveActive(nil); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(s.archivePath()); os.IsNotExist(err) {
		empty := Archive{CreatedDate: time.Now().Format(time.RFC3339)}
		if err := s.SaveArchive(&empty); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Dir() string         { return s.dir }
func (s *Store) activePath() string  { return filepath.Join(s.dir, activeFile) }
func (s *Store) archivePath() string { return filepath.Join(s.dir, archiveFile) }

// LoadActive reads the full active set.
func (s *Store) LoadActive() ([]*assignment.Assignment, error) {
	data, err := os.ReadFile(s.activePath())
	if err != nil {
		return nil, fmt.Errorf("read active set: %w", err)
	}
	var active []*assignment.Assignment
	if err := json.Unmarshal(data, &active); err != nil {
		return nil, fmt.Errorf("decode active set: %w", err)
	}
	return active, nil
}

// SaveActive atomically replaces the active set file.
func (s *Store) SaveActive(active []*assignment.Assignment) error {
	if active == nil {
		active = []*assignment.Assignment{}
	}
	return writeJSON(s.activePath(), active)
}

// LoadArchive reads the archive file.
func (s *Store) LoadArchive() (*Archive, error) {
	data, err := os.ReadFile(s.archivePath())
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var arch Archive
	if err := json.Unmarshal(data, &arch); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return &arch, nil
}

// SaveArchive atomically replaces the archive file, refreshing the cleanup
// timestamp and the archived counter.
func (s *Store) SaveArchive(arch *Archive) error {
	if arch.Assignments == nil {
		arch.Assignments = []assignment.ArchiveEntry{}
	}
	arch.TotalArchived = len(arch.Assignments)
	arch.LastCleanup = time.Now().Format(time.RFC3339)
	return writeJSON(s.archivePath(), arch)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".duesync-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
