// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package pool

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/elliotnunn/huffdir/internal/archive"
	"github.com/elliotnunn/huffdir/internal/fileid"
	"github.com/elliotnunn/huffdir/internal/freq"
	"github.com/elliotnunn/huffdir/internal/freqcache"
	"github.com/elliotnunn/huffdir/internal/huffman"
	"github.com/elliotnunn/huffdir/internal/lister"
)

type CompressReport struct {
	Files     int // records written
	Skipped   int // unreadable when counting, left out of the archive
	Failed    int // unreadable when encoding, written as empty records
	Symbols   uint64
	Discarded uint64 // malformed bytes dropped from the input
	Unique    int
	Bytes     int64 // archive size
	Workers   int
	Duration  time.Duration
}

// Compress writes an archive of the matching files in dir.
// The archive is assembled next to archivePath and renamed into place,
// so a failed run leaves no partial archive behind.
func Compress(ctx context.Context, dir, archivePath string, opt Options) (CompressReport, error) {
	tmp := archivePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return CompressReport{}, err
	}
	bw := bufio.NewWriterSize(f, 1<<20)

	rep, err := CompressFS(ctx, os.DirFS(dir), bw, opt)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, archivePath)
	}
	if err != nil {
		os.Remove(tmp)
		return rep, err
	}
	return rep, nil
}

// CompressFS writes an archive of the matching files in fsys to w.
// Nothing is written unless at least one file contains at least one symbol.
func CompressFS(ctx context.Context, fsys fs.FS, w io.Writer, opt Options) (CompressReport, error) {
	var rep CompressReport
	t := time.Now()

	names, err := lister.List(fsys, cmp.Or(opt.Pattern, lister.DefaultPattern))
	if err != nil {
		return rep, err
	}
	if len(names) == 0 {
		return rep, ErrNoFiles
	}
	slog.Info("compressStart", "files", len(names), "cpus", runtime.NumCPU())

	table, readable, discarded, err := countPhase(ctx, fsys, names, opt)
	if err != nil {
		return rep, err
	}
	rep.Skipped = len(names) - len(readable)
	rep.Symbols, rep.Unique = table.Total(), table.Len()
	rep.Discarded = discarded
	if len(readable) == 0 {
		return rep, ErrNoFiles
	}
	if table.Len() == 0 {
		return rep, ErrNoSymbols
	}

	tree, err := huffman.Build(table)
	if err != nil {
		return rep, err
	}
	codes, err := tree.Codes()
	if err != nil {
		return rep, err
	}
	slog.Debug("codeTable", "codes", codes.String())

	cw := &countWriter{w: w}
	if err := archive.WriteHeader(cw, table, len(readable)); err != nil {
		return rep, err
	}
	rep.Workers = opt.workers(len(readable))
	rep.Failed, err = encodePhase(ctx, fsys, readable, codes, cw, rep.Workers)
	rep.Files = len(readable)
	rep.Bytes = cw.n
	rep.Duration = time.Since(t)
	if err != nil {
		return rep, err
	}
	slog.Info("compressStop",
		"files", rep.Files, "skipped", rep.Skipped, "failed", rep.Failed,
		"symbols", rep.Symbols, "discarded", rep.Discarded, "unique", rep.Unique, "bytes", rep.Bytes,
		"duration", rep.Duration.String())
	return rep, nil
}

type counted struct {
	idx   int
	table freq.Table
	stats freq.Stats
	err   error
}

// countPhase merges the per-file tables into one.
// Workers hand their tables to this goroutine, which is the only one that adds them up.
// Unreadable files are logged and left out of the returned list.
func countPhase(ctx context.Context, fsys fs.FS, names []string, opt Options) (freq.Table, []string, uint64, error) {
	workers := opt.workers(len(names))
	slog.Info("frequencyStart", "files", len(names), "workers", workers)
	t := time.Now()

	jobs := make(chan int)
	results := make(chan counted, workers)
	wait := run(workers, jobs, func(i int) {
		tab, st, err := countFile(ctx, fsys, names[i], opt.Cache)
		results <- counted{i, tab, st, err}
	})
	go func() {
		for i := range names {
			jobs <- i
		}
		close(jobs)
		wait()
		close(results)
	}()

	total := freq.New()
	var discarded uint64
	ok := make([]bool, len(names))
	for r := range results {
		if r.err != nil {
			slog.Warn("fileSkipped", "path", names[r.idx], "err", r.err)
			continue
		}
		if r.stats.Discarded > 0 {
			slog.Warn("malformedInput", "path", names[r.idx], "discarded", r.stats.Discarded)
			discarded += r.stats.Discarded
		}
		total.Merge(r.table)
		ok[r.idx] = true
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}

	var readable []string
	for i, name := range names {
		if ok[i] {
			readable = append(readable, name)
		}
	}
	slog.Info("frequencyStop", "unique", total.Len(), "duration", time.Since(t).String())
	return total, readable, discarded, nil
}

func countFile(ctx context.Context, fsys fs.FS, name string, cache *freqcache.Cache) (freq.Table, freq.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, freq.Stats{}, err
	}

	var id fileid.ID
	cacheable := false
	if cache != nil {
		var err error
		if id, err = fileid.Get(fsys, name); err == nil {
			if t, st, ok := cache.Get(id); ok {
				slog.Debug("frequencyCached", "path", name)
				return t, st, nil
			}
			cacheable = true
		}
	}

	f, err := fsys.Open(name)
	if err != nil {
		return nil, freq.Stats{}, err
	}
	defer f.Close()
	t, st, err := freq.Count(f)
	if err != nil {
		return nil, st, err
	}
	if cacheable {
		cache.Put(id, t, st)
	}
	return t, st, nil
}

type encoded struct {
	done chan struct{}
	rec  archive.Record
	err  error
}

// encodePhase encodes every file in parallel but writes the records in the order of names,
// whichever worker finishes first. At most 2*workers encoded files are held in memory.
func encodePhase(ctx context.Context, fsys fs.FS, names []string, codes huffman.Codes, w io.Writer, workers int) (failed int, err error) {
	slog.Info("encodeStart", "files", len(names), "workers", workers)
	t := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]encoded, len(names))
	for i := range slots {
		slots[i].done = make(chan struct{})
	}
	jobs := make(chan int)
	ahead := make(chan struct{}, 2*workers)
	wait := run(workers, jobs, func(i int) {
		s := &slots[i]
		s.rec, s.err = encodeFile(ctx, fsys, names[i], codes)
		close(s.done)
	})
	go func() {
		for i := range names {
			ahead <- struct{}{}
			jobs <- i
		}
		close(jobs)
	}()

	for i := range slots {
		s := &slots[i]
		<-s.done
		<-ahead
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			continue // drain the remaining workers
		}

		rec := s.rec
		if errors.Is(s.err, huffman.ErrUnknownSymbol) || errors.Is(s.err, huffman.ErrTooManySymbols) {
			// the file changed since it was counted, so the code table cannot represent it
			err = fmt.Errorf("%s: %w", names[i], s.err)
			cancel()
			continue
		} else if s.err != nil {
			slog.Warn("encodeFailed", "path", names[i], "err", s.err)
			rec = archive.Record{Name: names[i]}
			failed++
		}
		if err = archive.WriteRecord(w, rec); err != nil {
			cancel()
			continue
		}
		slog.Debug("compressed", "path", names[i], "symbols", rec.Symbols, "bytes", len(rec.Payload))
		s.rec = archive.Record{}
	}
	wait()
	slog.Info("encodeStop", "failed", failed, "duration", time.Since(t).String())
	return failed, err
}

func encodeFile(ctx context.Context, fsys fs.FS, name string, codes huffman.Codes) (archive.Record, error) {
	if err := ctx.Err(); err != nil {
		return archive.Record{}, err
	}
	f, err := fsys.Open(name)
	if err != nil {
		return archive.Record{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	p := huffman.NewPacker(&buf, codes)
	if _, err := freq.Scan(f, p.Pack); err != nil {
		return archive.Record{}, err
	}
	n, err := p.Close()
	if err != nil {
		return archive.Record{}, err
	}
	return archive.Record{Name: name, Symbols: n, Payload: buf.Bytes()}, nil
}
