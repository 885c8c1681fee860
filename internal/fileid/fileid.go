// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package fileid derives a key that changes whenever a file might have changed.
package fileid

import "errors"

// ID = (64 bits of inode number) + (64 bits of hash of (device, birth time, mtime, size))
type ID [16]byte

var ErrNotOS = errors.New("not an operating system file")
