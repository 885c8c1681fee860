// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package lister finds the input files of a compression run.
package lister

import (
	"fmt"
	"io/fs"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches text files directly inside the directory.
// Use "**/*.txt" to descend into subdirectories.
const DefaultPattern = "*.txt"

// List returns the regular files in fsys that match pattern, in lexical order,
// as slash-separated paths relative to the root of fsys.
//
// The order is part of the archive format's reproducibility,
// so it must not depend on directory read order.
func List(fsys fs.FS, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
	}
	if _, err := fs.Stat(fsys, "."); err != nil {
		return nil, err
	}
	names, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}
