// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package huffman

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/elliotnunn/huffdir/internal/freq"
)

var ErrCodeTooLong = errors.New("huffman: code longer than 64 bits")

// Code is a Len-bit value, most significant bit first.
type Code struct {
	Bits uint64
	Len  uint8
}

func (c Code) String() string {
	return fmt.Sprintf("%0*b", int(c.Len), c.Bits)
}

// HasPrefix reports whether p is a prefix of c.
func (c Code) HasPrefix(p Code) bool {
	return p.Len <= c.Len && c.Bits>>(c.Len-p.Len) == p.Bits
}

type Codes map[freq.Symbol]Code

// Codes derives every leaf's root-to-leaf path, 0 for left and 1 for right.
// A tree that is a single leaf gets the one-bit code 0,
// so that the packer never has to deal with an empty code.
func (t *Tree) Codes() (Codes, error) {
	type frame struct {
		i    int32
		code Code
	}
	codes := make(Codes, (len(t.nodes)+1)/2)
	stack := []frame{{i: t.Root()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t.IsLeaf(f.i) {
			if f.code.Len == 0 {
				f.code.Len = 1
			}
			codes[t.Symbol(f.i)] = f.code
			continue
		}
		if f.code.Len == 64 {
			return nil, ErrCodeTooLong
		}
		n := t.nodes[f.i]
		stack = append(stack,
			frame{n.one, Code{f.code.Bits<<1 | 1, f.code.Len + 1}},
			frame{n.zero, Code{f.code.Bits << 1, f.code.Len + 1}})
	}
	return codes, nil
}

func (c Codes) String() string {
	var b strings.Builder
	for _, s := range slices.Sorted(maps.Keys(c)) {
		fmt.Fprintf(&b, "%q %s\n", rune(s), c[s])
	}
	return b.String()
}
