// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package archive reads and writes the huffdir container.
//
// All integers are little-endian:
//
//	header:  u32 uniqueSymbols, {u32 symbol, u32 count}*, u32 fileCount
//	record:  u32 nameLen, name, u32 symbols, u64 payloadLen, payload
//
// Header entries are in ascending symbol order. The Huffman tree is not
// stored; it is rebuilt from the counts.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"

	"github.com/elliotnunn/huffdir/internal/freq"
)

const (
	MaxNameLen = 4096
	MaxPayload = 1 << 40
)

var (
	ErrBadHeader     = errors.New("archive: malformed header")
	ErrBadRecord     = errors.New("archive: malformed record")
	ErrCountOverflow = errors.New("archive: symbol count does not fit in 32 bits")
	ErrTooManyFiles  = errors.New("archive: file count does not fit in 32 bits")
	ErrNameTooLong   = errors.New("archive: file name too long")
)

var le = binary.LittleEndian

type Header struct {
	Table freq.Table
	Files int
}

// Record is one file. The payload holds Symbols packed symbols.
type Record struct {
	Name    string
	Symbols uint32
	Payload []byte
}

func WriteHeader(w io.Writer, t freq.Table, files int) error {
	if files < 0 || files > math.MaxUint32 {
		return ErrTooManyFiles
	}
	syms := t.Symbols()
	b := make([]byte, 0, 8+8*len(syms))
	b = le.AppendUint32(b, uint32(len(syms)))
	for _, s := range syms {
		n := t[s]
		if n > math.MaxUint32 {
			return fmt.Errorf("%w: %d occurrences of %#x", ErrCountOverflow, n, s)
		}
		b = le.AppendUint32(b, uint32(s))
		b = le.AppendUint32(b, uint32(n))
	}
	b = le.AppendUint32(b, uint32(files))
	_, err := w.Write(b)
	return err
}

func WriteRecord(w io.Writer, r Record) error {
	if len(r.Name) > MaxNameLen {
		return fmt.Errorf("%w: %q", ErrNameTooLong, r.Name)
	}
	b := make([]byte, 0, 16+len(r.Name))
	b = le.AppendUint32(b, uint32(len(r.Name)))
	b = append(b, r.Name...)
	b = le.AppendUint32(b, r.Symbols)
	b = le.AppendUint64(b, uint64(len(r.Payload)))
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.Write(r.Payload)
	return err
}

// Reader parses an archive sequentially. The header is parsed by NewReader.
type Reader struct {
	r      io.Reader
	hdr    Header
	remain int
	buf    [8]byte
}

func NewReader(r io.Reader) (*Reader, error) {
	ar := &Reader{r: r}
	if err := ar.readHeader(); err != nil {
		return nil, err
	}
	return ar, nil
}

func (ar *Reader) Header() Header {
	return ar.hdr
}

// Remaining reports how many records have not been returned by Next.
func (ar *Reader) Remaining() int {
	return ar.remain
}

func (ar *Reader) u32() (uint32, error) {
	_, err := io.ReadFull(ar.r, ar.buf[:4])
	return le.Uint32(ar.buf[:4]), err
}

func (ar *Reader) u64() (uint64, error) {
	_, err := io.ReadFull(ar.r, ar.buf[:8])
	return le.Uint64(ar.buf[:8]), err
}

func badHeader(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrBadHeader}, args...)...)
}

func (ar *Reader) readHeader() error {
	n, err := ar.u32()
	if err != nil {
		return badHeader("symbol count: %v", err)
	}
	if n > uint32(freq.MaxSymbol) {
		return badHeader("%d unique symbols", n)
	}

	t := make(freq.Table, n)
	var prev freq.Symbol
	for i := range n {
		s, err := ar.u32()
		if err != nil {
			return badHeader("entry %d: %v", i, err)
		}
		c, err := ar.u32()
		if err != nil {
			return badHeader("entry %d: %v", i, err)
		}
		switch {
		case freq.Symbol(s) >= freq.MaxSymbol:
			return badHeader("symbol %#x out of range", s)
		case c == 0:
			return badHeader("symbol %#x has zero count", s)
		case i > 0 && freq.Symbol(s) <= prev:
			return badHeader("symbol %#x out of order", s)
		}
		t[freq.Symbol(s)] = uint64(c)
		prev = freq.Symbol(s)
	}

	files, err := ar.u32()
	if err != nil {
		return badHeader("file count: %v", err)
	}
	if n == 0 && files != 0 {
		return badHeader("%d files but no symbols", files)
	}
	ar.hdr = Header{Table: t, Files: int(files)}
	ar.remain = int(files)
	return nil
}

// Next returns the next record, or io.EOF after the last one.
// After an error wrapping ErrBadRecord the remaining records cannot be located.
func (ar *Reader) Next() (Record, error) {
	if ar.remain == 0 {
		return Record{}, io.EOF
	}
	idx := ar.hdr.Files - ar.remain

	nameLen, err := ar.u32()
	if err != nil {
		return Record{}, ar.badRecord(idx, "name length", err)
	}
	if nameLen == 0 || nameLen > MaxNameLen {
		return Record{}, ar.badRecord(idx, "name length", fmt.Errorf("%d bytes", nameLen))
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(ar.r, name); err != nil {
		return Record{}, ar.badRecord(idx, "name", err)
	}
	if !fs.ValidPath(string(name)) || string(name) == "." {
		return Record{}, ar.badRecord(idx, "name", fmt.Errorf("unsafe path %q", name))
	}

	syms, err := ar.u32()
	if err != nil {
		return Record{}, ar.badRecord(idx, "symbol count", err)
	}
	size, err := ar.u64()
	if err != nil {
		return Record{}, ar.badRecord(idx, "payload size", err)
	}
	if size > MaxPayload {
		return Record{}, ar.badRecord(idx, "payload size", fmt.Errorf("%d bytes", size))
	}

	// grow as data arrives, so a corrupt size cannot force a huge allocation
	var payload bytes.Buffer
	got, err := payload.ReadFrom(io.LimitReader(ar.r, int64(size)))
	if err != nil {
		return Record{}, ar.badRecord(idx, "payload", err)
	} else if uint64(got) != size {
		return Record{}, ar.badRecord(idx, "payload", fmt.Errorf("%d of %d bytes", got, size))
	}

	ar.remain--
	return Record{Name: string(name), Symbols: syms, Payload: payload.Bytes()}, nil
}

func (ar *Reader) badRecord(idx int, field string, err error) error {
	ar.remain = 0
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w %d: %s: %v", ErrBadRecord, idx, field, err)
}
