package kvfs

import (
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/absfs/absfs"
)

// File is an open file or directory returned by Filer.OpenFile. A file's
// contents are read when it is opened; writes go to that buffer and are
// stored with a single Update on Sync or Close.
type File struct {
	filer  *Filer
	name   string
	key    string
	flags  int
	dir    bool
	closed bool

	data   []byte
	offset int64
	dirty  bool

	listing   []Metadata
	listed    bool
	diroffset int
}

func (f *File) Name() string {
	return f.name
}

func (f *File) readable() error {
	switch {
	case f.closed:
		return os.ErrClosed
	case f.dir:
		return &os.PathError{Op: "read", Path: f.name, Err: syscall.EISDIR}
	case f.flags&absfs.O_ACCESS == os.O_WRONLY:
		return &os.PathError{Op: "read", Path: f.name, Err: os.ErrPermission}
	}
	return nil
}

func (f *File) writable() error {
	switch {
	case f.closed:
		return os.ErrClosed
	case f.dir:
		return &os.PathError{Op: "write", Path: f.name, Err: syscall.EISDIR}
	case f.flags&absfs.O_ACCESS == os.O_RDONLY:
		return &os.PathError{Op: "write", Path: f.name, Err: os.ErrPermission}
	}
	return nil
}

func (f *File) Read(b []byte) (int, error) {
	if err := f.readable(); err != nil {
		return 0, err
	}
	if f.offset >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(b, f.data[f.offset:])
	f.offset += int64(n)
	return n, nil
}

func (f *File) ReadAt(b []byte, off int64) (int, error) {
	if err := f.readable(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, &os.PathError{Op: "readat", Path: f.name, Err: os.ErrInvalid}
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(b, f.data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	if err := f.writable(); err != nil {
		return 0, err
	}
	if f.flags&os.O_APPEND != 0 {
		f.offset = int64(len(f.data))
	}
	n := f.writeAt(p, f.offset)
	f.offset += int64(n)
	return n, nil
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if err := f.writable(); err != nil {
		return 0, err
	}
	if off < 0 || f.flags&os.O_APPEND != 0 {
		return 0, &os.PathError{Op: "writeat", Path: f.name, Err: os.ErrInvalid}
	}
	return f.writeAt(p, off), nil
}

func (f *File) writeAt(p []byte, off int64) int {
	if end := off + int64(len(p)); end > int64(len(f.data)) {
		data := make([]byte, end)
		copy(data, f.data)
		f.data = data
	}
	n := copy(f.data[off:], p)
	f.dirty = true
	return n
}

func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.offset + offset
	case io.SeekEnd:
		pos = int64(len(f.data)) + offset
	default:
		return f.offset, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	if pos < 0 {
		return f.offset, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	f.offset = pos
	return pos, nil
}

func (f *File) Truncate(size int64) error {
	if err := f.writable(); err != nil {
		return err
	}
	if size < 0 {
		return &os.PathError{Op: "truncate", Path: f.name, Err: os.ErrInvalid}
	}
	if size <= int64(len(f.data)) {
		f.data = f.data[:size]
	} else {
		data := make([]byte, size)
		copy(data, f.data)
		f.data = data
	}
	f.dirty = true
	return nil
}

// Sync stores buffered writes.
func (f *File) Sync() error {
	if f.closed {
		return os.ErrClosed
	}
	return f.flush()
}

// Close stores buffered writes and closes the file.
func (f *File) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	err := f.flush()
	f.closed = true
	return err
}

func (f *File) flush() error {
	if !f.dirty {
		return nil
	}
	if _, err := f.filer.fs.Update(f.key, f.data, nil); err != nil {
		return &os.PathError{Op: "write", Path: f.name, Err: osError(err)}
	}
	f.dirty = false
	return nil
}

func (f *File) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}
	md, err := f.filer.fs.GetMetadata(f.key)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: f.name, Err: osError(err)}
	}
	if !f.dir {
		md.Size = int64(len(f.data))
	}
	return &fileInfo{md}, nil
}

// Readdir returns up to n entries of an open directory, or all remaining
// entries if n <= 0.
func (f *File) Readdir(n int) ([]os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}
	if !f.dir {
		return nil, &os.PathError{Op: "readdir", Path: f.name, Err: syscall.ENOTDIR}
	}
	if !f.listed {
		f.listing = f.filer.fs.ListContents(f.key, false)
		f.listed = true
	}

	rest := f.listing[f.diroffset:]
	if n > 0 {
		if len(rest) == 0 {
			return nil, io.EOF
		}
		if n < len(rest) {
			rest = rest[:n]
		}
	}
	f.diroffset += len(rest)

	infos := make([]os.FileInfo, len(rest))
	for i, md := range rest {
		infos[i] = &fileInfo{md}
	}
	return infos, nil
}

func (f *File) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i := range infos {
		names[i] = infos[i].Name()
	}
	return names, nil
}

func (f *File) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i := range infos {
		entries[i] = fs.FileInfoToDirEntry(infos[i])
	}
	return entries, nil
}
