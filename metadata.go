package kvfs

import "time"

// Metadata is a read-only description of an entry. It never carries the
// contents of a file. Visibility, Timestamp and Size are only set for files.
type Metadata struct {
	Path       string
	Type       Kind
	Visibility Visibility
	Timestamp  time.Time
	Size       int64
}

// IsDir reports whether m describes a directory.
func (m Metadata) IsDir() bool {
	return m.Type == KindDir
}

func project(p string, e entry) Metadata {
	md := Metadata{Path: p, Type: e.kind()}
	if f, ok := e.(*fileEntry); ok {
		md.Visibility = f.visibility
		md.Timestamp = f.timestamp
		md.Size = f.size
	}
	return md
}
