// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package main

import (
	"log/slog"
	"os"
	"strconv"
)

var (
	envWorkers  int        = calcWorkers()
	envCacheDir string     = os.Getenv("HUFFDIR_CACHE")
	envLogLevel slog.Level = calcLogLevel()
)

func calcWorkers() int {
	if e := os.Getenv("HUFFDIR_WORKERS"); e != "" {
		n, err := strconv.Atoi(e)
		if err != nil || n < 1 {
			panic("malformed HUFFDIR_WORKERS environment variable, should be a positive number of goroutines: " + e)
		}
		return n
	}
	return 0 // fall back on one per CPU
}

func calcLogLevel() slog.Level {
	var l slog.Level // info
	if e := os.Getenv("HUFFDIR_LOG"); e != "" {
		if err := l.UnmarshalText([]byte(e)); err != nil {
			panic("malformed HUFFDIR_LOG environment variable, should be debug, info, warn or error: " + e)
		}
	}
	return l
}
