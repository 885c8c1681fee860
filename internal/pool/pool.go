// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package pool runs compression and decompression across a bounded set of goroutines.
//
// Three phases are parallel: counting symbols, encoding files and decoding records.
// Each phase finishes completely before the next begins, because the code
// derived from the counts is shared, read-only, by every encoder and decoder.
package pool

import (
	"errors"
	"io"
	"runtime"
	"sync"

	"github.com/elliotnunn/huffdir/internal/freqcache"
)

var (
	ErrNoFiles   = errors.New("no eligible files")
	ErrNoSymbols = errors.New("no valid characters found")
)

type Options struct {
	Workers int              // <= 0 means one per CPU
	Pattern string           // file pattern for Compress, lister.DefaultPattern if empty
	Cache   *freqcache.Cache // optional
}

// workers is the goroutine count for a phase with n items.
func (o Options) workers(n int) int {
	w := o.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// run starts n goroutines that call fn for every job received.
// The returned function waits for them after jobs is closed.
func run(n int, jobs <-chan int, fn func(int)) (wait func()) {
	wg := new(sync.WaitGroup)
	wg.Add(n)
	for range n {
		go func() {
			for i := range jobs {
				fn(i)
			}
			wg.Done()
		}()
	}
	return wg.Wait
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
