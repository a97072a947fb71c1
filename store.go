package kvfs

// entryStore is the flat path to entry mapping everything else is built on.
// It performs no validation; the tree rules are enforced by its callers.
type entryStore struct {
	entries map[string]entry
	usage   Usage
}

// Usage summarizes what a store holds. The root directory is not counted.
type Usage struct {
	Files int   // Number of file entries
	Dirs  int   // Number of directory entries
	Bytes int64 // Total size of all file contents
}

func newEntryStore() *entryStore {
	s := &entryStore{entries: make(map[string]entry)}
	s.entries[rootPath] = &dirEntry{}
	return s
}

func (s *entryStore) has(p string) bool {
	_, ok := s.entries[p]
	return ok
}

func (s *entryStore) get(p string) (entry, bool) {
	e, ok := s.entries[p]
	return e, ok
}

// getFile returns the file stored at p, or nil.
func (s *entryStore) getFile(p string) *fileEntry {
	f, _ := s.entries[p].(*fileEntry)
	return f
}

// put inserts or replaces the entry at p.
func (s *entryStore) put(p string, e entry) {
	if old, ok := s.entries[p]; ok {
		s.account(p, old, -1)
	}
	s.entries[p] = e
	s.account(p, e, 1)
}

func (s *entryStore) remove(p string) {
	old, ok := s.entries[p]
	if !ok {
		return
	}
	delete(s.entries, p)
	s.account(p, old, -1)
}

// paths returns every stored key in no particular order.
func (s *entryStore) paths() []string {
	list := make([]string, 0, len(s.entries))
	for p := range s.entries {
		list = append(list, p)
	}
	return list
}

func (s *entryStore) account(p string, e entry, sign int) {
	if p == rootPath {
		return
	}
	switch e := e.(type) {
	case *fileEntry:
		s.usage.Files += sign
		s.usage.Bytes += int64(sign) * e.size
	case *dirEntry:
		s.usage.Dirs += sign
	}
}

// clone returns an independent copy of the store.
func (s *entryStore) clone() *entryStore {
	c := &entryStore{
		entries: make(map[string]entry, len(s.entries)),
		usage:   s.usage,
	}
	for p, e := range s.entries {
		c.entries[p] = e.clone()
	}
	return c
}
