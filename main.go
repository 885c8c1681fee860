// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Command huffdir packs a directory of text files into one Huffman-coded archive
// and unpacks it again.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/elliotnunn/huffdir/internal/freqcache"
	"github.com/elliotnunn/huffdir/internal/lister"
	"github.com/elliotnunn/huffdir/internal/pool"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

const usage = `usage:
  huffdir compress [-o archive.huff] [-j N] [-match '*.txt'] [-cache DIR] <directory>
  huffdir decompress [-j N] <archive> <output-directory>
  huffdir list <archive>
  huffdir verify [-j N] <archive> <directory>

environment:
  HUFFDIR_WORKERS  default for -j
  HUFFDIR_CACHE    default for -cache
  HUFFDIR_LOG      debug, info, warn or error
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: envLogLevel})))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitFatal
	}
	switch args[0] {
	case "compress":
		return compress(ctx, args[1:], stdout, stderr)
	case "decompress":
		return decompress(ctx, args[1:], stdout, stderr)
	case "list":
		return list(args[1:], stdout, stderr)
	case "verify":
		return verify(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return exitFatal
	}
}

// parse handles the flags and checks the positional argument count.
func parse(fset *flag.FlagSet, args []string, npos int, stderr io.Writer) bool {
	fset.SetOutput(stderr)
	fset.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fset.Parse(args); err != nil {
		return false
	}
	if fset.NArg() != npos {
		fmt.Fprintf(stderr, "%s: wanted %d arguments, got %d\n%s", fset.Name(), npos, fset.NArg(), usage)
		return false
	}
	return true
}

func compress(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("compress", flag.ContinueOnError)
	out := fset.String("o", "archive.huff", "archive to write")
	workers := fset.Int("j", envWorkers, "goroutines per phase, 0 for one per CPU")
	match := fset.String("match", lister.DefaultPattern, "file pattern, ** descends into subdirectories")
	cacheDir := fset.String("cache", envCacheDir, "directory for cached frequency tables")
	if !parse(fset, args, 1, stderr) {
		return exitFatal
	}

	opt := pool.Options{Workers: *workers, Pattern: *match}
	if *cacheDir != "" {
		c, err := freqcache.Open(*cacheDir)
		if err != nil {
			slog.Error("cacheOpenError", "dir", *cacheDir, "err", err)
			return exitFatal
		}
		defer c.Close()
		opt.Cache = c
	}

	rep, err := pool.Compress(ctx, fset.Arg(0), *out, opt)
	if err != nil {
		slog.Error("compressError", "dir", fset.Arg(0), "err", err)
		if badInput(err) {
			fmt.Fprint(stderr, usage)
		}
		return exitFatal
	}
	fmt.Fprintf(stdout, "%s: %d files, %d symbols (%d unique), %d bytes in %s\n",
		*out, rep.Files, rep.Symbols, rep.Unique, rep.Bytes, rep.Duration)
	if rep.Skipped+rep.Failed > 0 {
		return exitPartial
	}
	return exitOK
}

// badInput reports whether a compress error came from the directory or pattern given.
func badInput(err error) bool {
	return errors.Is(err, pool.ErrNoFiles) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, doublestar.ErrBadPattern)
}

func decompress(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("decompress", flag.ContinueOnError)
	workers := fset.Int("j", envWorkers, "goroutines, 0 for one per CPU")
	if !parse(fset, args, 2, stderr) {
		return exitFatal
	}

	rep, err := pool.Decompress(ctx, fset.Arg(0), fset.Arg(1), pool.Options{Workers: *workers})
	if err != nil {
		slog.Error("decompressError", "archive", fset.Arg(0), "err", err)
		return exitFatal
	}
	fmt.Fprintf(stdout, "%s: %d files restored, %d failed in %s\n",
		fset.Arg(1), rep.Files-rep.Failed, rep.Failed, rep.Duration)
	if rep.Failed > 0 {
		return exitPartial
	}
	return exitOK
}

func list(args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	if !parse(fset, args, 1, stderr) {
		return exitFatal
	}

	hdr, entries, err := pool.List(fset.Arg(0))
	for _, e := range entries {
		fmt.Fprintf(stdout, "%10d %10d %s\n", e.Symbols, e.Bytes, e.Name)
	}
	if err != nil {
		slog.Error("listError", "archive", fset.Arg(0), "err", err)
		if len(entries) == 0 {
			return exitFatal
		}
		return exitPartial
	}
	fmt.Fprintf(stdout, "%d files, %d symbols (%d unique)\n", hdr.Files, hdr.Table.Total(), hdr.Table.Len())
	return exitOK
}

func verify(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("verify", flag.ContinueOnError)
	workers := fset.Int("j", envWorkers, "goroutines, 0 for one per CPU")
	if !parse(fset, args, 2, stderr) {
		return exitFatal
	}

	rep, err := pool.Verify(ctx, fset.Arg(0), fset.Arg(1), pool.Options{Workers: *workers})
	if err != nil {
		slog.Error("verifyError", "archive", fset.Arg(0), "err", err)
		return exitFatal
	}
	fmt.Fprintf(stdout, "%d matched, %d mismatched, %d missing, %d failed\n",
		rep.Matched, rep.Mismatched, rep.Missing, rep.Failed)
	if !rep.OK() {
		return exitPartial
	}
	return exitOK
}
