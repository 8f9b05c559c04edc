// Package index queries remote package channels and holds the read-only view
// of what they already publish.
//
// The view is fetched once per run. Artifacts another process publishes
// while the run is in progress are not seen; the uploader's "already exists"
// tolerance absorbs the resulting duplicate uploads.
package index

import (
	"context"
	"slices"
)

// Entry is one channel's record of an artifact.
type Entry struct {
	Channel string
	MD5     string
}

// Snapshot maps artifact filenames to the channels holding them.
type Snapshot struct {
	entries map[string][]Entry
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{entries: make(map[string][]Entry)}
}

// Add records that channel publishes filename with the given hash.
func (s *Snapshot) Add(filename string, e Entry) {
	s.entries[filename] = append(s.entries[filename], e)
}

// Contains reports whether any channel publishes filename. A nil snapshot
// contains nothing.
func (s *Snapshot) Contains(filename string) bool {
	if s == nil {
		return false
	}
	_, ok := s.entries[filename]
	return ok
}

// Lookup returns the per-channel entries for filename.
func (s *Snapshot) Lookup(filename string) []Entry {
	if s == nil {
		return nil
	}
	return slices.Clone(s.entries[filename])
}

// Len returns the number of distinct artifact filenames.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Fetcher queries a set of channels for the artifacts they publish.
type Fetcher interface {
	Fetch(ctx context.Context, channels []string) (*Snapshot, error)
}
