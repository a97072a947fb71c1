package kvfs

import (
	"bytes"
	"os"
	"sort"
	"sync"
	"time"
)

// Snapshot is a read-only point-in-time copy of a FileSystem. Changes made
// to the FileSystem after the snapshot was taken are not visible through it.
type Snapshot struct {
	mu       sync.RWMutex
	store    *entryStore
	created  time.Time
	name     string
	released bool
}

// CreateSnapshot copies the current state of the filesystem. The copy is
// taken under the write lock, so it always satisfies the tree invariants.
func (fs *FileSystem) CreateSnapshot(name string) *Snapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.log.WithField("snapshot", name).Debug("created snapshot")
	return &Snapshot{
		store:   fs.store.clone(),
		created: fs.clock.Now(),
		name:    name,
	}
}

// Restore replaces the whole state of the filesystem with the contents of
// snap. The snapshot stays usable and may be restored again.
func (fs *FileSystem) Restore(snap *Snapshot) error {
	snap.mu.RLock()
	defer snap.mu.RUnlock()
	if snap.released {
		return os.ErrClosed
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	// fs.rev is left alone: it never moves backwards, so revisions handed out
	// after the restore cannot collide with the restored ones.
	fs.store = snap.store.clone()
	fs.cache.Flush()
	fs.metrics.setUsage(fs.store.usage)
	fs.log.WithField("snapshot", snap.name).Debug("restored snapshot")
	return nil
}

// Name returns the snapshot's name.
func (s *Snapshot) Name() string {
	return s.name
}

// Created returns the time when the snapshot was created.
func (s *Snapshot) Created() time.Time {
	return s.created
}

// Release frees the copied state. The snapshot cannot be used after calling
// Release; releasing twice is harmless.
func (s *Snapshot) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.store = nil
	return nil
}

// Has reports whether path existed when the snapshot was taken.
func (s *Snapshot) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return false
	}
	return s.store.has(cleanPath(path))
}

// GetMetadata describes the entry at path.
func (s *Snapshot) GetMetadata(path string) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return Metadata{}, os.ErrClosed
	}

	p := cleanPath(path)
	e, ok := s.store.get(p)
	if !ok {
		return Metadata{}, newError("getmetadata", p, ErrNotFound, nil)
	}
	return project(p, e), nil
}

// Read returns a copy of the contents of the file at path.
func (s *Snapshot) Read(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, os.ErrClosed
	}

	p := cleanPath(path)
	e, ok := s.store.get(p)
	if !ok {
		return nil, newError("read", p, ErrNotFound, nil)
	}
	f, ok := e.(*fileEntry)
	if !ok {
		return nil, newError("read", p, ErrTypeConflict, nil)
	}
	return bytes.Clone(f.contents), nil
}

// ListContents lists dir as it was when the snapshot was taken.
func (s *Snapshot) ListContents(dir string, recursive bool) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, os.ErrClosed
	}
	return listContents(s.store, cleanPath(dir), recursive), nil
}

// SnapshotManager keeps named snapshots of one filesystem.
type SnapshotManager struct {
	mu        sync.Mutex
	fs        *FileSystem
	snapshots map[string]*Snapshot
}

// NewSnapshotManager creates a new snapshot manager for the filesystem.
func (fs *FileSystem) NewSnapshotManager() *SnapshotManager {
	return &SnapshotManager{
		fs:        fs,
		snapshots: make(map[string]*Snapshot),
	}
}

// Create takes a new named snapshot. Names must be unique.
func (sm *SnapshotManager) Create(name string) (*Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.snapshots[name]; exists {
		return nil, os.ErrExist
	}

	snap := sm.fs.CreateSnapshot(name)
	sm.snapshots[name] = snap
	return snap, nil
}

// Get retrieves a snapshot by name.
func (sm *SnapshotManager) Get(name string) (*Snapshot, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	snap, ok := sm.snapshots[name]
	return snap, ok
}

// Restore rolls the filesystem back to the named snapshot.
func (sm *SnapshotManager) Restore(name string) error {
	snap, ok := sm.Get(name)
	if !ok {
		return os.ErrNotExist
	}
	return sm.fs.Restore(snap)
}

// Delete releases and removes a snapshot by name.
func (sm *SnapshotManager) Delete(name string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	snap, ok := sm.snapshots[name]
	if !ok {
		return os.ErrNotExist
	}

	err := snap.Release()
	delete(sm.snapshots, name)
	return err
}

// List returns the names of all snapshots, sorted.
func (sm *SnapshotManager) List() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	names := make([]string, 0, len(sm.snapshots))
	for name := range sm.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReleaseAll releases all snapshots.
func (sm *SnapshotManager) ReleaseAll() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var firstErr error
	for name, snap := range sm.snapshots {
		if err := snap.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(sm.snapshots, name)
	}
	return firstErr
}
