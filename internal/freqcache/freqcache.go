// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package freqcache remembers the frequency table of each input file across runs,
// so that compressing a mostly unchanged directory again skips most of the counting.
//
// Tables live in a pebble database keyed by [fileid.ID], with a small
// tinylfu cache in front of it.
package freqcache

import (
	"encoding/binary"
	"errors"
	"hash/maphash"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/dgryski/go-tinylfu"
	"github.com/elliotnunn/huffdir/internal/fileid"
	"github.com/elliotnunn/huffdir/internal/freq"
)

const (
	keyPrefix = "freq2/" // bump when the value encoding changes
	frontN    = 1024
)

// A Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	db *pebble.DB

	mu    sync.Mutex
	front *tinylfu.T[fileid.ID, entry]
}

// entry is stored as a uvarint discarded count followed by the table.
type entry struct {
	table freq.Table
	stats freq.Stats
}

var errCorrupt = errors.New("corrupt cache entry")

var seed = maphash.MakeSeed()

func idHash(k fileid.ID) uint64 {
	return maphash.Comparable(seed, k)
}

func Open(dir string) (*Cache, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Cache{
		db:    db,
		front: tinylfu.New[fileid.ID, entry](frontN, frontN*10, idHash),
	}, nil
}

func key(id fileid.ID) []byte {
	return append([]byte(keyPrefix), id[:]...)
}

// Get returns the table stored for id, and the statistics of the scan that produced it.
// The table is shared and must not be modified.
func (c *Cache) Get(id fileid.ID) (freq.Table, freq.Stats, bool) {
	c.mu.Lock()
	e, ok := c.front.Get(id)
	c.mu.Unlock()
	if ok {
		return e.table, e.stats, true
	}

	val, closer, err := c.db.Get(key(id))
	if err == pebble.ErrNotFound {
		return nil, freq.Stats{}, false
	} else if err != nil {
		slog.Warn("freqCacheReadError", "err", err)
		return nil, freq.Stats{}, false
	}
	err = e.unmarshal(val) // copies out of val
	closer.Close()
	if err != nil {
		slog.Warn("freqCacheCorrupt", "id", id, "err", err)
		return nil, freq.Stats{}, false
	}

	c.mu.Lock()
	c.front.Add(id, e)
	c.mu.Unlock()
	return e.table, e.stats, true
}

// Put stores t and the statistics of its scan under id.
// The cache keeps t, so the caller must not modify it afterwards.
func (c *Cache) Put(id fileid.ID, t freq.Table, st freq.Stats) {
	e := entry{table: t, stats: freq.Stats{Symbols: t.Total(), Discarded: st.Discarded}}
	val, err := e.marshal()
	if err != nil {
		return
	}
	if err := c.db.Set(key(id), val, pebble.NoSync); err != nil {
		slog.Warn("freqCacheWriteError", "err", err)
		return
	}
	c.mu.Lock()
	c.front.Add(id, e)
	c.mu.Unlock()
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (e entry) marshal() ([]byte, error) {
	tab, err := e.table.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(binary.AppendUvarint(nil, e.stats.Discarded), tab...), nil
}

func (e *entry) unmarshal(b []byte) error {
	discarded, k := binary.Uvarint(b)
	if k <= 0 {
		return errCorrupt
	}
	var t freq.Table
	if err := t.UnmarshalBinary(b[k:]); err != nil {
		return err
	}
	*e = entry{table: t, stats: freq.Stats{Symbols: t.Total(), Discarded: discarded}}
	return nil
}
