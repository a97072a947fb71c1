package kvfs

import (
	"errors"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFiler(t *testing.T) (*Filer, *FileSystem) {
	t.Helper()
	fs := NewFS()
	return NewFiler(fs), fs
}

func TestFiler_CreateWriteRead(t *testing.T) {
	filer, fs := newTestFiler(t)

	f, err := filer.OpenFile("/dir/sub/hello.txt", os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	n, err := f.Write([]byte("hello, "))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	_, err = f.WriteString("world")
	require.NoError(t, err)

	// Nothing is stored before the file is synced.
	size, err := fs.Size("dir/sub/hello.txt")
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Close(), os.ErrClosed)

	data, err := filer.ReadFile("dir/sub/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))

	md, err := fs.GetMetadata("dir/sub")
	require.NoError(t, err)
	assert.True(t, md.IsDir())
}

func TestFiler_OpenErrors(t *testing.T) {
	filer, _ := newTestFiler(t)

	_, err := filer.OpenFile("missing", os.O_RDONLY, 0)
	assert.ErrorIs(t, err, os.ErrNotExist)

	f, err := filer.OpenFile("a.txt", os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = filer.OpenFile("a.txt", os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	assert.ErrorIs(t, err, os.ErrExist)

	require.NoError(t, filer.Mkdir("d", 0755))
	_, err = filer.OpenFile("d", os.O_RDWR, 0)
	assert.ErrorIs(t, err, syscall.EISDIR)

	_, err = filer.OpenFile("a.txt/b.txt", os.O_CREATE|os.O_WRONLY, 0644)
	assert.ErrorIs(t, err, syscall.ENOTDIR)
}

func TestFiler_TruncateAndAppend(t *testing.T) {
	filer, fs := newTestFiler(t)
	_, err := fs.Write("f", []byte("0123456789"), nil)
	require.NoError(t, err)

	f, err := filer.OpenFile("f", os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte("ab"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := fs.Read("f")
	require.NoError(t, err)
	assert.Equal(t, "0123456789ab", string(data))

	f, err = filer.OpenFile("f", os.O_WRONLY|os.O_TRUNC, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	size, err := fs.Size("f")
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestFiler_PermissionsMapToVisibility(t *testing.T) {
	filer, fs := newTestFiler(t)

	f, err := filer.OpenFile("secret", os.O_CREATE|os.O_WRONLY, 0600)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	vis, err := fs.Visibility("secret")
	require.NoError(t, err)
	assert.Equal(t, Private, vis)

	info, err := filer.Stat("secret")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode())

	require.NoError(t, filer.Chmod("secret", 0644))
	vis, err = fs.Visibility("secret")
	require.NoError(t, err)
	assert.Equal(t, Public, vis)

	require.NoError(t, filer.Mkdir("d", 0700))
	require.NoError(t, filer.Chmod("d", 0600))
	assert.ErrorIs(t, filer.Chmod("missing", 0600), os.ErrNotExist)
}

func TestFiler_Mkdir(t *testing.T) {
	filer, fs := newTestFiler(t)

	require.NoError(t, filer.Mkdir("/a/b/c", 0755))
	assert.True(t, fs.Has("a/b"))
	assert.ErrorIs(t, filer.Mkdir("a/b", 0755), os.ErrExist)

	_, err := fs.Write("file", nil, nil)
	require.NoError(t, err)
	assert.Error(t, filer.Mkdir("file/sub", 0755))
}

func TestFiler_Remove(t *testing.T) {
	filer, fs := newTestFiler(t)
	_, err := fs.Write("d/f", []byte("x"), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, filer.Remove("d"), syscall.ENOTEMPTY)
	require.NoError(t, filer.Remove("d/f"))
	require.NoError(t, filer.Remove("d"))
	assert.False(t, fs.Has("d"))
	assert.ErrorIs(t, filer.Remove("d"), os.ErrNotExist)
}

func TestFiler_Rename(t *testing.T) {
	filer, fs := newTestFiler(t)
	_, err := fs.Write("a/f", []byte("x"), nil)
	require.NoError(t, err)

	require.NoError(t, filer.Rename("a", "b"))
	assert.True(t, fs.Has("b/f"))

	err = filer.Rename("missing", "other")
	var linkErr *os.LinkError
	require.True(t, errors.As(err, &linkErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFiler_StatAndTimes(t *testing.T) {
	filer, fs := newTestFiler(t)
	_, err := fs.Write("dir/f.txt", []byte("abc"), nil)
	require.NoError(t, err)

	info, err := filer.Stat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "/", info.Name())

	info, err = filer.Stat("dir/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "f.txt", info.Name())
	assert.Equal(t, int64(3), info.Size())
	assert.IsType(t, Metadata{}, info.Sys())

	mtime := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, filer.Chtimes("dir/f.txt", mtime, mtime))
	ts, err := fs.Timestamp("dir/f.txt")
	require.NoError(t, err)
	assert.True(t, ts.Equal(mtime))

	require.NoError(t, filer.Chtimes("dir", mtime, mtime))
	assert.ErrorIs(t, filer.Chown("dir/f.txt", 0, 0), errors.ErrUnsupported)

	_, err = filer.Stat("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFiler_ReadDir(t *testing.T) {
	filer, fs := newTestFiler(t)
	for _, p := range []string{"d/c.txt", "d/a.txt", "d/b/deep.txt"} {
		_, err := fs.Write(p, []byte(p), nil)
		require.NoError(t, err)
	}

	entries, err := filer.ReadDir("d")
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.Equal(t, []string{"a.txt", "b", "c.txt"}, names)
	assert.True(t, entries[1].IsDir())

	_, err = filer.ReadDir("d/a.txt")
	assert.ErrorIs(t, err, syscall.ENOTDIR)
	_, err = filer.ReadFile("d")
	assert.ErrorIs(t, err, syscall.EISDIR)
}

func TestFiler_Sub(t *testing.T) {
	filer, fs := newTestFiler(t)
	_, err := fs.Write("root/inner/f.txt", []byte("x"), nil)
	require.NoError(t, err)

	sub, err := filer.Sub("root")
	require.NoError(t, err)
	assert.NotNil(t, sub)

	_, err = filer.Sub("root/inner/f.txt")
	assert.ErrorIs(t, err, syscall.ENOTDIR)
	_, err = filer.Sub("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFiler_RootedKeys(t *testing.T) {
	filer := &Filer{fs: NewFS(), root: "jail"}

	assert.Equal(t, "jail/x", filer.key("../x"))
	assert.Equal(t, "jail/a/b", filer.key("/a/./b"))
	assert.Equal(t, "jail", filer.key("/"))
}

func TestFile_SeekAndReadAt(t *testing.T) {
	filer, fs := newTestFiler(t)
	_, err := fs.Write("f", []byte("0123456789"), nil)
	require.NoError(t, err)

	f, err := filer.OpenFile("f", os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	pos, err := f.Seek(-3, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)

	buf := make([]byte, 5)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "789", string(buf[:n]))
	_, err = f.Read(buf)
	assert.Equal(t, io.EOF, err)

	n, err = f.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "23456", string(buf[:n]))
	n, err = f.ReadAt(buf, 8)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "89", string(buf[:n]))

	_, err = f.Seek(-1, io.SeekStart)
	assert.ErrorIs(t, err, os.ErrInvalid)

	_, err = f.WriteAt([]byte("XY"), 12)
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(14), info.Size())

	require.NoError(t, f.Truncate(4))
	require.NoError(t, f.Sync())
	data, err := fs.Read("f")
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))
}

func TestFile_AccessModes(t *testing.T) {
	filer, fs := newTestFiler(t)
	_, err := fs.Write("f", []byte("data"), nil)
	require.NoError(t, err)

	ro, err := filer.OpenFile("f", os.O_RDONLY, 0)
	require.NoError(t, err)
	_, err = ro.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrPermission)
	require.NoError(t, ro.Close())
	_, err = ro.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrClosed)

	wo, err := filer.OpenFile("f", os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = wo.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrPermission)
	require.NoError(t, wo.Close())
}

func TestFile_Readdir(t *testing.T) {
	filer, fs := newTestFiler(t)
	for _, p := range []string{"d/1", "d/2", "d/3"} {
		_, err := fs.Write(p, nil, nil)
		require.NoError(t, err)
	}

	dir, err := filer.OpenFile("d", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer dir.Close()

	_, err = dir.Read(make([]byte, 1))
	assert.ErrorIs(t, err, syscall.EISDIR)

	names, err := dir.Readdirnames(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, names)

	entries, err := dir.(*File).ReadDir(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "3", entries[0].Name())

	_, err = dir.Readdir(1)
	assert.Equal(t, io.EOF, err)

	file, err := filer.OpenFile("d/1", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer file.Close()
	_, err = file.Readdir(0)
	assert.ErrorIs(t, err, syscall.ENOTDIR)
}
