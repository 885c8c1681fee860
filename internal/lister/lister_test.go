// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package lister

import (
	"errors"
	"os"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/bmatcuk/doublestar/v4"
)

var tree = fstest.MapFS{
	"b.txt":           {Data: []byte("b")},
	"a.txt":           {Data: []byte("a")},
	"notes.md":        {Data: []byte("m")},
	"dir.txt/inner":   {Data: []byte("x")},
	"sub/c.txt":       {Data: []byte("c")},
	"sub/deep/d.txt":  {Data: []byte("d")},
	"sub/deep/e.text": {Data: []byte("e")},
}

func TestList(t *testing.T) {
	cases := []struct {
		pattern string
		want    []string
	}{
		{DefaultPattern, []string{"a.txt", "b.txt"}},
		{"**/*.txt", []string{"a.txt", "b.txt", "sub/c.txt", "sub/deep/d.txt"}},
		{"sub/*", []string{"sub/c.txt"}},
		{"*.csv", nil},
	}
	for _, c := range cases {
		t.Run(c.pattern, func(t *testing.T) {
			got, err := List(tree, c.pattern)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, c.want) {
				t.Errorf("wanted %q, got %q", c.want, got)
			}
		})
	}
}

func TestBadPattern(t *testing.T) {
	if _, err := List(tree, "[a-"); !errors.Is(err, doublestar.ErrBadPattern) {
		t.Errorf("wanted ErrBadPattern, got %v", err)
	}
}

func TestMissingDir(t *testing.T) {
	_, err := List(os.DirFS(t.TempDir()+"/nonexistent"), DefaultPattern)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("wanted ErrNotExist, got %v", err)
	}
}
