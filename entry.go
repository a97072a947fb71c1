package kvfs

import (
	"fmt"
	"time"
)

// Kind is the type of an entry, either a file or a directory.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// Visibility is the only access attribute a file carries. Directories have
// no visibility, their metadata reports the zero value.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// ParseVisibility validates s as a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case Public, Private:
		return v, nil
	}
	return "", fmt.Errorf("unknown visibility %q", s)
}

// entry is the record stored at one path. It is either a *fileEntry or a
// *dirEntry and nothing else.
type entry interface {
	kind() Kind
	clone() entry
}

type fileEntry struct {
	contents   []byte
	size       int64
	timestamp  time.Time
	visibility Visibility

	// rev identifies the current contents, it changes on every write.
	rev uint64
}

func (f *fileEntry) kind() Kind { return KindFile }

// clone copies the attributes. contents is shared: it is always replaced,
// never modified in place.
func (f *fileEntry) clone() entry {
	c := *f
	return &c
}

type dirEntry struct{}

func (d *dirEntry) kind() Kind { return KindDir }

func (d *dirEntry) clone() entry { return &dirEntry{} }

func isDir(e entry) bool {
	_, ok := e.(*dirEntry)
	return ok
}
