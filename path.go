package kvfs

import (
	"path"
	"strings"
)

// rootPath is the key of the root directory.
const rootPath = ""

// cleanPath turns a caller supplied path into a store key. Leading and
// trailing slashes are dropped, "." and ".." elements are resolved and "/"
// becomes the root.
func cleanPath(name string) string {
	p := path.Clean("/" + name)
	return strings.TrimPrefix(p, "/")
}

// dirname returns the parent key of p, the root for top level entries.
func dirname(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return rootPath
	}
	return p[:i]
}

// basename returns the final element of p.
func basename(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}

// inSubtree reports whether p lies strictly below dir.
func inSubtree(p, dir string) bool {
	if p == dir {
		return false
	}
	return dir == rootPath || strings.HasPrefix(p, dir+"/")
}
