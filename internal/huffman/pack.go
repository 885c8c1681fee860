// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package huffman

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/elliotnunn/huffdir/internal/freq"
	"github.com/icza/bitio"
)

var (
	ErrUnknownSymbol  = errors.New("huffman: symbol has no code")
	ErrTooManySymbols = errors.New("huffman: more than 2^32-1 symbols in one stream")
	ErrShortPayload   = errors.New("huffman: payload ends before the declared symbol count")
)

// A Packer writes codes most significant bit first.
// Close pads the last partial byte with zero bits.
type Packer struct {
	bw    *bitio.Writer
	codes Codes
	n     uint32
}

func NewPacker(w io.Writer, codes Codes) *Packer {
	return &Packer{bw: bitio.NewWriter(w), codes: codes}
}

func (p *Packer) Pack(s freq.Symbol) error {
	c, ok := p.codes[s]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownSymbol, s)
	}
	if p.n == math.MaxUint32 {
		return ErrTooManySymbols
	}
	if err := p.bw.WriteBits(c.Bits, c.Len); err != nil {
		return err
	}
	p.n++
	return nil
}

// Close flushes the final partial byte and reports how many symbols were packed.
// It does not close the underlying writer.
func (p *Packer) Close() (uint32, error) {
	return p.n, p.bw.Close()
}

func EncodeSymbols(codes Codes, syms []freq.Symbol) ([]byte, error) {
	var buf bytes.Buffer
	p := NewPacker(&buf, codes)
	for _, s := range syms {
		if err := p.Pack(s); err != nil {
			return nil, err
		}
	}
	if _, err := p.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode walks the tree one bit at a time and calls emit for exactly n symbols.
// Bits after the n-th symbol are padding and are never read.
func Decode(payload []byte, t *Tree, n uint32, emit func(freq.Symbol) error) error {
	br := bitio.NewReader(bytes.NewReader(payload))
	root := t.Root()
	cur := root
	for done := uint32(0); done < n; {
		bit, err := br.ReadBool()
		if err == io.EOF {
			return fmt.Errorf("%w: %d of %d symbols from %d bytes", ErrShortPayload, done, n, len(payload))
		} else if err != nil {
			return err
		}
		if !t.IsLeaf(cur) {
			cur = t.Child(cur, bit)
		}
		if t.IsLeaf(cur) {
			if err := emit(t.Symbol(cur)); err != nil {
				return err
			}
			cur = root
			done++
		}
	}
	return nil
}

func DecodeSymbols(payload []byte, t *Tree, n uint32) ([]freq.Symbol, error) {
	out := make([]freq.Symbol, 0, min(n, 1<<20))
	err := Decode(payload, t, n, func(s freq.Symbol) error {
		out = append(out, s)
		return nil
	})
	return out, err
}
