package kvfs

import "sort"

// collect returns the paths listed under dir. Direct children are always
// included; with recursive set, every path below dir is. dir itself is never
// part of the result.
//
// The caller must hold a lock.
func collect(s *entryStore, dir string, recursive bool) []string {
	var list []string
	for _, p := range s.paths() {
		if p == dir {
			continue
		}
		if dirname(p) == dir || recursive && inSubtree(p, dir) {
			list = append(list, p)
		}
	}
	return list
}

// listContents projects the entries under dir, sorted by path. The root is
// never part of a listing.
func listContents(s *entryStore, dir string, recursive bool) []Metadata {
	paths := collect(s, dir, recursive)
	sort.Strings(paths)

	list := make([]Metadata, 0, len(paths))
	for _, p := range paths {
		if p == rootPath {
			continue
		}
		e, _ := s.get(p)
		list = append(list, project(p, e))
	}
	return list
}
