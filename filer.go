package kvfs

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/absfs/absfs"
)

// Filer presents a FileSystem through the absfs.Filer interface. Paths may be
// absolute or relative, both resolve against the filer's root.
//
// Directories are created implicitly like everywhere else in kvfs: creating
// "/a/b/c.txt" also creates "/a" and "/a/b". Permission bits are mapped onto
// visibility, any group or other read bit makes a file public.
type Filer struct {
	fs   *FileSystem
	root string
}

var _ absfs.Filer = (*Filer)(nil)

// NewFiler returns a Filer rooted at the root of filesystem.
func NewFiler(filesystem *FileSystem) *Filer {
	return &Filer{fs: filesystem}
}

// key resolves name to a store key. ".." never leaves the filer's root.
func (f *Filer) key(name string) string {
	return cleanPath(f.root + "/" + cleanPath(name))
}

// OpenFile opens the named file. With os.O_CREATE a missing file is created
// together with its parent directories. Writes are buffered in the returned
// File and stored when it is synced or closed.
func (f *Filer) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	invalid := &absfs.InvalidFile{Path: name}
	pathErr := &os.PathError{Op: "open", Path: name}
	p := f.key(name)
	access := flag & absfs.O_ACCESS

	md, err := f.fs.GetMetadata(p)
	switch {
	case err != nil && CodeOf(err) != ErrNotFound:
		pathErr.Err = osError(err)
		return invalid, pathErr

	case err != nil:
		if flag&os.O_CREATE == 0 {
			pathErr.Err = syscall.ENOENT
			return invalid, pathErr
		}
		md, err = f.fs.Write(p, nil, Config{"visibility": permVisibility(perm)})
		if err != nil {
			pathErr.Err = osError(err)
			return invalid, pathErr
		}

	default:
		if flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0 {
			pathErr.Err = syscall.EEXIST
			return invalid, pathErr
		}
		if md.IsDir() {
			if access != os.O_RDONLY || flag&os.O_TRUNC != 0 {
				pathErr.Err = syscall.EISDIR
				return invalid, pathErr
			}
			return &File{filer: f, name: name, key: p, flags: flag, dir: true}, nil
		}
	}

	file := &File{filer: f, name: name, key: p, flags: flag}
	if flag&os.O_TRUNC != 0 && access != os.O_RDONLY {
		file.dirty = md.Size > 0
		return file, nil
	}
	file.data, err = f.fs.Read(p)
	if err != nil {
		pathErr.Err = osError(err)
		return invalid, pathErr
	}
	return file, nil
}

// Mkdir creates a directory. Unlike os.Mkdir missing parents are created too.
func (f *Filer) Mkdir(name string, perm os.FileMode) error {
	p := f.key(name)
	if f.fs.Has(p) {
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrExist}
	}
	if _, err := f.fs.CreateDir(p, nil); err != nil {
		return &os.PathError{Op: "mkdir", Path: name, Err: osError(err)}
	}
	return nil
}

// Remove removes a file or an empty directory.
func (f *Filer) Remove(name string) error {
	p := f.key(name)
	md, err := f.fs.GetMetadata(p)
	if err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: osError(err)}
	}

	if md.IsDir() {
		if len(f.fs.ListContents(p, false)) > 0 {
			return &os.PathError{Op: "remove", Path: name, Err: syscall.ENOTEMPTY}
		}
		err = f.fs.DeleteDir(p)
	} else {
		err = f.fs.Delete(p)
	}
	if err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: osError(err)}
	}
	return nil
}

// Rename moves oldpath to newpath, see FileSystem.Rename.
func (f *Filer) Rename(oldpath, newpath string) error {
	if err := f.fs.Rename(f.key(oldpath), f.key(newpath)); err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: osError(err)}
	}
	return nil
}

// Stat returns a FileInfo describing the named entry.
func (f *Filer) Stat(name string) (os.FileInfo, error) {
	md, err := f.fs.GetMetadata(f.key(name))
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: osError(err)}
	}
	return &fileInfo{md}, nil
}

// Chmod sets the visibility of a file from mode. It has no effect on
// directories.
func (f *Filer) Chmod(name string, mode os.FileMode) error {
	p := f.key(name)
	md, err := f.fs.GetMetadata(p)
	if err != nil {
		return &os.PathError{Op: "chmod", Path: name, Err: osError(err)}
	}
	if md.IsDir() {
		return nil
	}
	if _, err := f.fs.SetVisibility(p, permVisibility(mode)); err != nil {
		return &os.PathError{Op: "chmod", Path: name, Err: osError(err)}
	}
	return nil
}

// Chtimes sets the timestamp of a file to mtime. Access times are not
// tracked and directories have no timestamp.
func (f *Filer) Chtimes(name string, atime time.Time, mtime time.Time) error {
	p := f.key(name)
	md, err := f.fs.GetMetadata(p)
	if err != nil {
		return &os.PathError{Op: "chtimes", Path: name, Err: osError(err)}
	}
	if md.IsDir() {
		return nil
	}
	if _, err := f.fs.Touch(p, mtime); err != nil {
		return &os.PathError{Op: "chtimes", Path: name, Err: osError(err)}
	}
	return nil
}

// Chown is not supported, entries have no owner.
func (f *Filer) Chown(name string, uid, gid int) error {
	return &os.PathError{Op: "chown", Path: name, Err: errors.ErrUnsupported}
}

// ReadDir returns the entries of the named directory sorted by name.
func (f *Filer) ReadDir(name string) ([]fs.DirEntry, error) {
	p := f.key(name)
	md, err := f.fs.GetMetadata(p)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: name, Err: osError(err)}
	}
	if !md.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: name, Err: syscall.ENOTDIR}
	}

	list := f.fs.ListContents(p, false)
	entries := make([]fs.DirEntry, 0, len(list))
	for _, child := range list {
		entries = append(entries, fs.FileInfoToDirEntry(&fileInfo{child}))
	}
	return entries, nil
}

// ReadFile returns the contents of the named file.
func (f *Filer) ReadFile(name string) ([]byte, error) {
	data, err := f.fs.Read(f.key(name))
	if err != nil {
		if CodeOf(err) == ErrTypeConflict {
			return nil, &os.PathError{Op: "readfile", Path: name, Err: syscall.EISDIR}
		}
		return nil, &os.PathError{Op: "readfile", Path: name, Err: osError(err)}
	}
	return data, nil
}

// Sub returns an fs.FS for the subtree rooted at dir.
func (f *Filer) Sub(dir string) (fs.FS, error) {
	p := f.key(dir)
	md, err := f.fs.GetMetadata(p)
	if err != nil {
		return nil, &os.PathError{Op: "sub", Path: dir, Err: osError(err)}
	}
	if !md.IsDir() {
		return nil, &os.PathError{Op: "sub", Path: dir, Err: syscall.ENOTDIR}
	}
	return absfs.FilerToFS(&Filer{fs: f.fs, root: p}, "/")
}

// permVisibility maps permission bits onto a visibility.
func permVisibility(perm os.FileMode) Visibility {
	if perm&0044 != 0 {
		return Public
	}
	return Private
}

// osError translates a kvfs error into the os error absfs callers expect.
func osError(err error) error {
	switch CodeOf(err) {
	case ErrNotFound:
		return os.ErrNotExist
	case ErrTypeConflict, ErrParentUnavailable:
		return syscall.ENOTDIR
	case ErrInvalidArgument:
		return os.ErrInvalid
	}
	return err
}

// fileInfo implements os.FileInfo over Metadata.
type fileInfo struct {
	md Metadata
}

func (i *fileInfo) Name() string {
	if i.md.Path == rootPath {
		return "/"
	}
	return basename(i.md.Path)
}

func (i *fileInfo) Size() int64 { return i.md.Size }

func (i *fileInfo) Mode() os.FileMode {
	switch {
	case i.md.IsDir():
		return os.ModeDir | 0755
	case i.md.Visibility == Private:
		return 0600
	default:
		return 0644
	}
}

func (i *fileInfo) ModTime() time.Time { return i.md.Timestamp }

func (i *fileInfo) IsDir() bool { return i.md.IsDir() }

// Sys returns the underlying Metadata.
func (i *fileInfo) Sys() interface{} { return i.md }
