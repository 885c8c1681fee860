// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package freq counts symbol occurrences.
//
// A Table built for one file can be merged into a Table for a whole corpus.
// Merging is per-symbol addition, so the order in which partial tables arrive
// never changes the result.
package freq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/elliotnunn/huffdir/internal/utf8codec"
)

// Symbol is one indivisible unit of input, in practice a Unicode codepoint.
type Symbol uint32

// MaxSymbol bounds the alphabet: every valid Symbol is below it.
const MaxSymbol Symbol = 0x110000

// Table maps a Symbol to its count. Symbols with a zero count are absent.
//
// A Table is not safe for concurrent mutation.
type Table map[Symbol]uint64

type Stats struct {
	Symbols   uint64 // kept
	Discarded uint64 // malformed or out of range
}

func New() Table {
	return make(Table)
}

func (t Table) Add(s Symbol) {
	t[s]++
}

func (t Table) AddN(s Symbol, n uint64) {
	if n != 0 {
		t[s] += n
	}
}

// Merge adds every count in other to t.
func (t Table) Merge(other Table) {
	for s, n := range other {
		t.AddN(s, n)
	}
}

// Symbols lists the present symbols in ascending order.
func (t Table) Symbols() []Symbol {
	return slices.Sorted(maps.Keys(t))
}

func (t Table) Len() int {
	return len(t)
}

func (t Table) Total() (n uint64) {
	for _, c := range t {
		n += c
	}
	return n
}

func (t Table) Equal(other Table) bool {
	return maps.Equal(t, other)
}

// Scan decodes r with the UTF-8 codec and calls fn for every valid symbol.
// Malformed sequences and symbols at or above MaxSymbol are dropped and counted.
// Scanning stops at the first error returned by fn or by r.
func Scan(r io.Reader, fn func(Symbol) error) (Stats, error) {
	var st Stats
	cr := utf8codec.NewReader(r)
	for {
		c, err := cr.Next()
		switch {
		case err == io.EOF:
			return st, nil
		case errors.Is(err, utf8codec.ErrMalformed):
			st.Discarded++
			continue
		case err != nil:
			return st, err
		case c < 0 || Symbol(c) >= MaxSymbol:
			st.Discarded++
			continue
		}
		if err := fn(Symbol(c)); err != nil {
			return st, err
		}
		st.Symbols++
	}
}

// Count builds a local table for one stream.
func Count(r io.Reader) (Table, Stats, error) {
	t := New()
	st, err := Scan(r, func(s Symbol) error {
		t.Add(s)
		return nil
	})
	if err != nil {
		return nil, st, err
	}
	return t, st, nil
}

var errCorrupt = errors.New("corrupt frequency table encoding")

// MarshalBinary encodes the table compactly as ascending (symbol delta, count) varint pairs.
func (t Table) MarshalBinary() ([]byte, error) {
	b := binary.AppendUvarint(nil, uint64(len(t)))
	var prev Symbol
	for _, s := range t.Symbols() {
		b = binary.AppendUvarint(b, uint64(s-prev))
		b = binary.AppendUvarint(b, t[s])
		prev = s
	}
	return b, nil
}

func (t *Table) UnmarshalBinary(b []byte) error {
	n, k := binary.Uvarint(b)
	if k <= 0 || n > uint64(MaxSymbol) {
		return errCorrupt
	}
	b = b[k:]
	out := make(Table, n)
	var s uint64
	for i := range n {
		delta, k := binary.Uvarint(b)
		if k <= 0 || (i > 0 && delta == 0) {
			return errCorrupt
		}
		b = b[k:]
		count, k := binary.Uvarint(b)
		if k <= 0 || count == 0 {
			return errCorrupt
		}
		b = b[k:]
		s += delta
		if s >= uint64(MaxSymbol) {
			return fmt.Errorf("%w: symbol %#x", errCorrupt, s)
		}
		out[Symbol(s)] = count
	}
	if len(b) != 0 {
		return errCorrupt
	}
	*t = out
	return nil
}
