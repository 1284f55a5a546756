// Package snapshot keeps per-night JSON snapshots of scheduler state on disk,
// pruned to a fixed number of files.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	filePrefix = "sched_night_"
	fileSuffix = ".json"

	// DefaultMaxFiles is used when a Store is created with maxFiles <= 0.
	DefaultMaxFiles = 5
)

// ErrNoSnapshots is returned by LoadLatest when the directory holds none.
var ErrNoSnapshots = errors.New("no snapshots found")

// Store manages snapshot files in one directory.
type Store struct {
	dir      string
	maxFiles int
}

// NewStore creates a Store that writes into dir and keeps at most maxFiles.
func NewStore(dir string, maxFiles int) *Store {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Store{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// Write saves v as the snapshot for night and prunes the oldest files beyond
// maxFiles. Rewriting a night replaces its file.
func (s *Store) Write(night int, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	path := filepath.Join(s.dir, fileName(night))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming snapshot: %w", err)
	}

	return s.prune()
}

// LoadLatest decodes the highest-numbered night's snapshot into v and returns
// that night.
func (s *Store) LoadLatest(v any) (int, error) {
	files, err := s.list()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, ErrNoSnapshots
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(s.dir, latest.name))
	if err != nil {
		return 0, fmt.Errorf("reading snapshot: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return 0, fmt.Errorf("decoding %s: %w", latest.name, err)
	}
	return latest.night, nil
}

// Nights returns the nights that have a snapshot, oldest first.
func (s *Store) Nights() ([]int, error) {
	files, err := s.list()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(files))
	for i, f := range files {
		out[i] = f.night
	}
	return out, nil
}

func fileName(night int) string {
	return fmt.Sprintf("%s%05d%s", filePrefix, night, fileSuffix)
}

type snapFile struct {
	name  string
	night int
}

func (s *Store) list() ([]snapFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshot dir: %w", err)
	}

	var files []snapFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		night, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		files = append(files, snapFile{name: name, night: night})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].night < files[j].night
	})
	return files, nil
}

func (s *Store) prune() error {
	files, err := s.list()
	if err != nil {
		return err
	}
	if len(files) <= s.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-s.maxFiles] {
		if err := os.Remove(filepath.Join(s.dir, f.name)); err != nil {
			return fmt.Errorf("pruning snapshot %s: %w", f.name, err)
		}
	}
	return nil
}
