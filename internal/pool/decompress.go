// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/elliotnunn/huffdir/internal/archive"
	"github.com/elliotnunn/huffdir/internal/freq"
	"github.com/elliotnunn/huffdir/internal/huffman"
	"github.com/elliotnunn/huffdir/internal/utf8codec"
	"golang.org/x/sync/errgroup"
)

var errDuplicate = errors.New("duplicate file name in archive")

type DecompressReport struct {
	Files    int // records in the archive header
	Failed   int // records that could not be restored
	Workers  int
	Duration time.Duration
}

// Decompress restores every record of the archive under outDir, creating it if needed.
// A record that cannot be restored is counted in Failed; the error return is
// reserved for problems that stop the whole run.
func Decompress(ctx context.Context, archivePath, outDir string, opt Options) (DecompressReport, error) {
	var rep DecompressReport
	t := time.Now()

	ar, c, err := archive.Open(archivePath)
	if err != nil {
		return rep, err
	}
	defer c.Close()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return rep, err
	}

	rep.Files = ar.Header().Files
	rep.Workers = opt.workers(rep.Files)
	slog.Info("decompressStart", "archive", archivePath, "files", rep.Files, "workers", rep.Workers)
	rep.Failed, err = decodeAll(ctx, ar, rep.Workers, func(rec archive.Record, tree *huffman.Tree) error {
		return restore(outDir, rec, tree)
	})
	rep.Duration = time.Since(t)
	if err != nil {
		return rep, err
	}
	slog.Info("decompressStop", "files", rep.Files, "failed", rep.Failed, "duration", rep.Duration.String())
	return rep, nil
}

// decodeAll parses records one after another and hands each to fn on its own goroutine,
// with at most workers in flight. The tree is built before the first record is read
// and is shared read-only by every call to fn.
func decodeAll(ctx context.Context, ar *archive.Reader, workers int, fn func(archive.Record, *huffman.Tree) error) (failed int, err error) {
	hdr := ar.Header()
	if hdr.Files == 0 {
		return 0, nil
	}
	tree, err := huffman.Build(hdr.Table)
	if err != nil {
		return 0, err
	}

	var nfailed atomic.Int64
	var g errgroup.Group
	g.SetLimit(workers)
	seen := make(map[string]bool, hdr.Files)
	parsed := 0
	for {
		if err = ctx.Err(); err != nil {
			break
		}
		rec, rerr := ar.Next()
		if rerr == io.EOF {
			break
		} else if rerr != nil {
			slog.Error("archiveDamaged", "unreadable", hdr.Files-parsed, "err", rerr)
			nfailed.Add(int64(hdr.Files - parsed))
			break
		}
		parsed++
		if seen[rec.Name] {
			slog.Warn("decodeFailed", "path", rec.Name, "err", errDuplicate)
			nfailed.Add(1)
			continue
		}
		seen[rec.Name] = true

		g.Go(func() error {
			if err := fn(rec, tree); err != nil {
				slog.Warn("decodeFailed", "path", rec.Name, "err", err)
				nfailed.Add(1)
			}
			return nil
		})
	}
	g.Wait()
	return int(nfailed.Load()), err
}

// restore writes one record below outDir. A partly written file is removed.
func restore(outDir string, rec archive.Record, tree *huffman.Tree) (err error) {
	rel := filepath.FromSlash(rec.Name)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("unsafe path %q", rec.Name)
	}
	path := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := utf8codec.NewWriter(f)
	err = huffman.Decode(rec.Payload, tree, rec.Symbols, func(s freq.Symbol) error {
		return w.Write(rune(s))
	})
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	slog.Debug("decompressed", "path", path, "symbols", rec.Symbols)
	return nil
}
