package kvfs

// ensureDirectory makes p a directory, creating any missing ancestors. An
// existing directory is left untouched. The whole chain is checked before
// anything is created, so a failure never leaves new directories behind.
//
// The caller must hold the write lock.
func (fs *FileSystem) ensureDirectory(op, p string) error {
	if e, ok := fs.store.get(p); ok {
		if isDir(e) {
			return nil
		}
		return newError(op, p, ErrTypeConflict, nil)
	}

	// Walk up to the nearest existing entry, remembering what is missing.
	missing := []string{p}
	parent := dirname(p)
	for {
		e, ok := fs.store.get(parent)
		if ok {
			if !isDir(e) {
				return newError(op, p, ErrParentUnavailable, newError(op, parent, ErrTypeConflict, nil))
			}
			break
		}
		missing = append(missing, parent)
		parent = dirname(parent)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		fs.store.put(missing[i], &dirEntry{})
		fs.log.WithField("path", missing[i]).Debug("created directory")
	}
	return nil
}

// ensureParent prepares the parent directory of p for a new entry. Any
// failure is reported as ErrParentUnavailable.
func (fs *FileSystem) ensureParent(op, p string) error {
	dir := dirname(p)
	err := fs.ensureDirectory(op, dir)
	if err == nil {
		return nil
	}
	if CodeOf(err) == ErrParentUnavailable {
		err.(*Error).Path = p
		return err
	}
	return newError(op, p, ErrParentUnavailable, err)
}
