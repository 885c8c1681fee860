// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package archive

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/therootcompany/xz"
)

const xzMagic = "\xfd7zXZ\x00"

// Open opens an archive file for reading.
// An archive that was compressed with xz for transport is unwrapped transparently.
// The returned Closer closes the file.
func Open(name string) (*Reader, io.Closer, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	r, err := unwrap(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	ar, err := NewReader(r)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return ar, f, nil
}

func unwrap(f io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(f, 256*1024)
	header, _ := br.Peek(len(xzMagic)) // short files fall through to the header parser
	if bytes.Equal(header, []byte(xzMagic)) {
		xr, err := xz.NewReader(br, xz.DefaultDictMax)
		if err != nil {
			return nil, err
		}
		return bufio.NewReaderSize(xr, 256*1024), nil
	}
	return br, nil
}
