package kvfs

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// DefaultCacheSize is the number of mimetypes remembered by a new FileSystem.
const DefaultCacheSize = 1000

// FileSystem is an in-memory tree of files and directories stored in a flat
// map keyed by path. It is safe for concurrent use; every operation runs
// under a single lock and is never observed half done.
type FileSystem struct {
	mu    sync.RWMutex
	store *entryStore
	rev   uint64

	clock     clock.Clock
	log       logrus.FieldLogger
	metrics   *Metrics
	cache     *mimeCache
	cacheSize int
}

// Option configures a FileSystem.
type Option func(*FileSystem)

// WithLogger sets the logger used for debug output. By default nothing is
// logged.
func WithLogger(log logrus.FieldLogger) Option {
	return func(fs *FileSystem) {
		fs.log = log
	}
}

// WithClock sets the clock used for file timestamps.
func WithClock(c clock.Clock) Option {
	return func(fs *FileSystem) {
		fs.clock = c
	}
}

// WithMetrics reports operations and usage to m.
func WithMetrics(m *Metrics) Option {
	return func(fs *FileSystem) {
		fs.metrics = m
	}
}

// WithCacheSize sets how many sniffed mimetypes are kept. Zero disables the
// cache.
func WithCacheSize(size int) Option {
	return func(fs *FileSystem) {
		fs.cacheSize = size
	}
}

// NewFS creates an empty FileSystem holding only the root directory.
func NewFS(opts ...Option) *FileSystem {
	fs := &FileSystem{
		store:     newEntryStore(),
		clock:     clock.New(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(fs)
	}
	if fs.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		fs.log = l
	}
	fs.cache = newMimeCache(fs.cacheSize, fs.clock)
	fs.metrics.setUsage(fs.store.usage)
	return fs
}

// Has reports whether anything is stored at path. The root always exists.
func (fs *FileSystem) Has(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.store.has(cleanPath(path))
}

// GetMetadata describes the entry at path.
func (fs *FileSystem) GetMetadata(path string) (md Metadata, err error) {
	p := cleanPath(path)
	defer fs.done("getmetadata", p, &err)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	e, ok := fs.store.get(p)
	if !ok {
		return Metadata{}, newError("getmetadata", p, ErrNotFound, nil)
	}
	return project(p, e), nil
}

// Read returns a copy of the contents of the file at path.
func (fs *FileSystem) Read(path string) (data []byte, err error) {
	p := cleanPath(path)
	defer fs.done("read", p, &err)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	f, err := fs.file("read", p)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(f.contents), nil
}

// ReadStream returns a reader over a copy of the contents of the file at
// path. Later writes to the file do not affect the reader.
func (fs *FileSystem) ReadStream(path string) (io.ReadCloser, error) {
	data, err := fs.Read(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Write stores contents as a file at path, creating missing parent
// directories. An existing file is replaced and its visibility reset to
// Public unless cfg says otherwise. Writing over a directory fails with
// ErrTypeConflict.
func (fs *FileSystem) Write(path string, contents []byte, cfg Config) (md Metadata, err error) {
	const op = "write"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	vis, hasVis, err := configVisibility(op, p, cfg)
	if err != nil {
		return Metadata{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if e, ok := fs.store.get(p); ok && isDir(e) {
		return Metadata{}, newError(op, p, ErrTypeConflict, nil)
	}
	if err := fs.ensureParent(op, p); err != nil {
		return Metadata{}, err
	}

	fs.store.put(p, &fileEntry{visibility: Public})
	return fs.update(op, p, contents, vis, hasVis)
}

// Update replaces the contents of the existing file at path.
func (fs *FileSystem) Update(path string, contents []byte, cfg Config) (md Metadata, err error) {
	const op = "update"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	vis, hasVis, err := configVisibility(op, p, cfg)
	if err != nil {
		return Metadata{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.update(op, p, contents, vis, hasVis)
}

// update must be called with the write lock held.
func (fs *FileSystem) update(op, p string, contents []byte, vis Visibility, hasVis bool) (Metadata, error) {
	old, err := fs.file(op, p)
	if err != nil {
		return Metadata{}, err
	}

	fs.rev++
	f := &fileEntry{
		contents:   bytes.Clone(contents),
		size:       int64(len(contents)),
		timestamp:  fs.clock.Now(),
		visibility: old.visibility,
		rev:        fs.rev,
	}
	if hasVis {
		f.visibility = vis
	}
	fs.store.put(p, f)
	fs.metrics.setUsage(fs.store.usage)

	fs.log.WithFields(logrus.Fields{
		"op":   op,
		"path": p,
		"size": humanize.IBytes(uint64(f.size)),
	}).Debug("stored file")
	return project(p, f), nil
}

// SetVisibility changes the visibility of the file at path.
func (fs *FileSystem) SetVisibility(path string, visibility Visibility) (md Metadata, err error) {
	const op = "setvisibility"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	if _, err := ParseVisibility(string(visibility)); err != nil {
		return Metadata{}, newError(op, p, ErrInvalidArgument, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := fs.file(op, p)
	if err != nil {
		return Metadata{}, err
	}
	f.visibility = visibility
	return project(p, f), nil
}

// Touch sets the modification time of the file at path.
func (fs *FileSystem) Touch(path string, t time.Time) (md Metadata, err error) {
	const op = "touch"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := fs.file(op, p)
	if err != nil {
		return Metadata{}, err
	}
	f.timestamp = t
	return project(p, f), nil
}

// Visibility returns the visibility of the file at path.
func (fs *FileSystem) Visibility(path string) (Visibility, error) {
	md, err := fs.fileMetadata("getvisibility", path)
	return md.Visibility, err
}

// Size returns the size in bytes of the file at path.
func (fs *FileSystem) Size(path string) (int64, error) {
	md, err := fs.fileMetadata("getsize", path)
	return md.Size, err
}

// Timestamp returns the last modification time of the file at path.
func (fs *FileSystem) Timestamp(path string) (time.Time, error) {
	md, err := fs.fileMetadata("gettimestamp", path)
	return md.Timestamp, err
}

func (fs *FileSystem) fileMetadata(op, path string) (md Metadata, err error) {
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	f, err := fs.file(op, p)
	if err != nil {
		return Metadata{}, err
	}
	return project(p, f), nil
}

// GetMimetype detects the media type of the file at path from its contents.
func (fs *FileSystem) GetMimetype(path string) (mime string, err error) {
	const op = "getmimetype"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	f, err := fs.file(op, p)
	if err != nil {
		return "", err
	}
	if mime, ok := fs.cache.Get(p, f.rev); ok {
		return mime, nil
	}
	mime = mimetype.Detect(f.contents).String()
	fs.cache.Put(p, f.rev, mime)
	return mime, nil
}

// CreateDir makes path a directory, creating missing parents. It succeeds
// without change if the directory already exists. cfg is validated but
// directories carry no visibility.
func (fs *FileSystem) CreateDir(path string, cfg Config) (md Metadata, err error) {
	const op = "createdir"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	if _, _, err := configVisibility(op, p, cfg); err != nil {
		return Metadata{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.ensureDirectory(op, p); err != nil {
		return Metadata{}, err
	}
	fs.metrics.setUsage(fs.store.usage)
	return Metadata{Path: p, Type: KindDir}, nil
}

// Delete removes the file at path.
func (fs *FileSystem) Delete(path string) (err error) {
	const op = "delete"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.file(op, p); err != nil {
		return err
	}
	fs.remove(p)
	fs.metrics.setUsage(fs.store.usage)
	return nil
}

// DeleteDir removes the directory at path together with everything below
// it. The root cannot be removed.
func (fs *FileSystem) DeleteDir(path string) (err error) {
	const op = "deletedir"
	p := cleanPath(path)
	defer fs.done(op, p, &err)

	if p == rootPath {
		return newError(op, p, ErrInvalidArgument, nil)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, ok := fs.store.get(p)
	if !ok {
		return newError(op, p, ErrNotFound, nil)
	}
	if !isDir(e) {
		return newError(op, p, ErrTypeConflict, nil)
	}

	removed := collect(fs.store, p, true)
	for _, c := range removed {
		fs.remove(c)
	}
	fs.remove(p)
	fs.metrics.setUsage(fs.store.usage)

	fs.log.WithFields(logrus.Fields{"op": op, "path": p, "entries": len(removed) + 1}).Debug("removed directory")
	return nil
}

// Copy duplicates the entry at src to dst, creating the parents of dst.
// Copying a directory copies only the directory itself, not its contents.
// An existing file at dst is replaced; a directory at dst can only be
// "replaced" by another directory.
func (fs *FileSystem) Copy(src, dst string) (err error) {
	const op = "copy"
	s, d := cleanPath(src), cleanPath(dst)
	defer fs.done(op, s, &err)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, ok := fs.store.get(s)
	if !ok {
		return newError(op, s, ErrNotFound, nil)
	}
	if s == d {
		return nil
	}
	if err := fs.copyEntry(op, e, d); err != nil {
		return err
	}
	fs.metrics.setUsage(fs.store.usage)
	return nil
}

// copyEntry must be called with the write lock held.
func (fs *FileSystem) copyEntry(op string, e entry, d string) error {
	if de, ok := fs.store.get(d); ok && isDir(de) {
		if !isDir(e) {
			return newError(op, d, ErrTypeConflict, nil)
		}
		return nil
	}
	if err := fs.ensureParent(op, d); err != nil {
		return err
	}
	fs.store.put(d, e.clone())
	return nil
}

// Rename moves the entry at src to dst, creating the parents of dst. A
// directory is moved with everything below it; its destination must not
// exist or be an empty directory.
func (fs *FileSystem) Rename(src, dst string) (err error) {
	const op = "rename"
	s, d := cleanPath(src), cleanPath(dst)
	defer fs.done(op, s, &err)

	if s == rootPath {
		return newError(op, s, ErrInvalidArgument, nil)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, ok := fs.store.get(s)
	if !ok {
		return newError(op, s, ErrNotFound, nil)
	}
	if s == d {
		return nil
	}

	var children []string
	if isDir(e) {
		if inSubtree(d, s) {
			return newError(op, d, ErrInvalidArgument, nil)
		}
		if de, ok := fs.store.get(d); ok && isDir(de) && len(collect(fs.store, d, false)) > 0 {
			return newError(op, d, ErrTypeConflict, nil)
		}
		children = collect(fs.store, s, true)
	}

	if err := fs.copyEntry(op, e, d); err != nil {
		return err
	}
	for _, c := range children {
		ce, _ := fs.store.get(c)
		fs.store.put(d+c[len(s):], ce)
		fs.remove(c)
	}
	fs.remove(s)
	fs.metrics.setUsage(fs.store.usage)
	return nil
}

// ListContents describes the entries directly inside dir, or with recursive
// set everything below it, ordered by path. A missing directory lists as
// empty.
func (fs *FileSystem) ListContents(dir string, recursive bool) []Metadata {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return listContents(fs.store, cleanPath(dir), recursive)
}

// Usage returns the number of entries and bytes stored.
func (fs *FileSystem) Usage() Usage {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.store.usage
}

// CacheStats returns statistics about the mimetype cache.
func (fs *FileSystem) CacheStats() CacheStats {
	return fs.cache.Stats()
}

// FlushCache removes all entries from the mimetype cache.
func (fs *FileSystem) FlushCache() {
	fs.cache.Flush()
}

// SetCacheSize changes the maximum size of the mimetype cache.
// Setting size to 0 or negative disables the cache.
func (fs *FileSystem) SetCacheSize(size int) {
	fs.cache.Enable(size)
}

// file returns the file stored at p. It fails with ErrNotFound if nothing is
// there and ErrTypeConflict if p is a directory.
func (fs *FileSystem) file(op, p string) (*fileEntry, error) {
	f := fs.store.getFile(p)
	switch {
	case f != nil:
		return f, nil
	case fs.store.has(p):
		return nil, newError(op, p, ErrTypeConflict, nil)
	}
	return nil, newError(op, p, ErrNotFound, nil)
}

// remove drops p from the store and the mimetype cache.
func (fs *FileSystem) remove(p string) {
	fs.store.remove(p)
	fs.cache.Invalidate(p)
}

// done records the outcome of op. It is deferred with a pointer to the
// operation's named error result.
func (fs *FileSystem) done(op, p string, errp *error) {
	err := *errp
	fs.metrics.observe(op, err)
	if err != nil {
		fs.log.WithFields(logrus.Fields{"op": op, "path": p}).WithError(err).Debug("operation failed")
	}
}
