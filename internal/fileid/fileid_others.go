// Copyright (c) Elliot Nunn
// Licensed under the MIT license

//go:build !unix

package fileid

import (
	"io/fs"
)

// Get always fails: without an inode there is nothing stable to key on,
// so callers skip caching.
func Get(fsys fs.FS, pathname string) (ID, error) {
	return ID{}, ErrNotOS
}
