// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package pool

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/elliotnunn/huffdir/internal/archive"
	"github.com/elliotnunn/huffdir/internal/freq"
	"github.com/elliotnunn/huffdir/internal/huffman"
	"github.com/elliotnunn/huffdir/internal/utf8codec"
)

type Entry struct {
	Name    string
	Symbols uint32
	Bytes   int
}

// List returns the header and the records of an archive without decoding any payload.
// If the archive is damaged, the entries before the damage are returned with the error.
func List(archivePath string) (archive.Header, []Entry, error) {
	ar, c, err := archive.Open(archivePath)
	if err != nil {
		return archive.Header{}, nil, err
	}
	defer c.Close()

	var entries []Entry
	for {
		rec, err := ar.Next()
		if err == io.EOF {
			return ar.Header(), entries, nil
		} else if err != nil {
			return ar.Header(), entries, err
		}
		entries = append(entries, Entry{rec.Name, rec.Symbols, len(rec.Payload)})
	}
}

type VerifyReport struct {
	Files      int
	Matched    int
	Mismatched int
	Missing    int // absent from the directory
	Failed     int // could not be decoded or read
	Duration   time.Duration
}

func (r VerifyReport) OK() bool {
	return r.Matched == r.Files
}

// Verify decodes every record in memory and compares its xxhash digest
// with that of the file of the same name under dir.
func Verify(ctx context.Context, archivePath, dir string, opt Options) (VerifyReport, error) {
	var rep VerifyReport
	t := time.Now()

	ar, c, err := archive.Open(archivePath)
	if err != nil {
		return rep, err
	}
	defer c.Close()

	fsys := os.DirFS(dir)
	var matched, mismatched, missing atomic.Int64
	rep.Files = ar.Header().Files
	rep.Failed, err = decodeAll(ctx, ar, opt.workers(rep.Files), func(rec archive.Record, tree *huffman.Tree) error {
		want := xxhash.New()
		w := utf8codec.NewWriter(want)
		err := huffman.Decode(rec.Payload, tree, rec.Symbols, func(s freq.Symbol) error {
			return w.Write(rune(s))
		})
		if err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}

		f, err := fsys.Open(rec.Name)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("verifyMissing", "path", rec.Name)
			missing.Add(1)
			return nil
		} else if err != nil {
			return err
		}
		defer f.Close()
		got := xxhash.New()
		if _, err := io.Copy(got, f); err != nil {
			return err
		}

		if got.Sum64() == want.Sum64() {
			matched.Add(1)
		} else {
			slog.Warn("verifyMismatch", "path", rec.Name)
			mismatched.Add(1)
		}
		return nil
	})
	rep.Matched = int(matched.Load())
	rep.Mismatched = int(mismatched.Load())
	rep.Missing = int(missing.Load())
	rep.Duration = time.Since(t)
	return rep, err
}
