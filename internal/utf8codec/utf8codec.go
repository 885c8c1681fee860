// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package utf8codec turns byte streams into codepoints and back.
//
// Unlike [bufio.Reader.ReadRune], a malformed byte is not reported as U+FFFD
// but as [ErrMalformed], so that callers can drop it without confusing it
// with a genuine replacement character in the text.
package utf8codec

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"
)

var ErrMalformed = errors.New("malformed UTF-8 sequence")

type Reader struct {
	br *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{br}
	}
	return &Reader{bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next codepoint, or io.EOF at the end of the stream.
// Each malformed byte yields one ErrMalformed; reading may continue after it.
func (r *Reader) Next() (rune, error) {
	c, size, err := r.br.ReadRune()
	if err != nil {
		return 0, err
	}
	if c == utf8.RuneError && size == 1 {
		return 0, ErrMalformed
	}
	return c, nil
}

type Writer struct {
	bw *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{bufio.NewWriterSize(w, 64*1024)}
}

// Write emits the canonical encoding of c.
func (w *Writer) Write(c rune) error {
	_, err := w.bw.WriteRune(c)
	return err
}

func (w *Writer) Flush() error {
	return w.bw.Flush()
}
