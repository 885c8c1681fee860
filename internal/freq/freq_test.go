// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package freq

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

func TestCount(t *testing.T) {
	tab, st, err := Count(strings.NewReader("abacab\xff日"))
	if err != nil {
		t.Fatal(err)
	}
	want := Table{'a': 3, 'b': 2, 'c': 1, '日': 1}
	if !tab.Equal(want) {
		t.Errorf("wanted %v, got %v", want, tab)
	}
	if st.Symbols != 7 || st.Discarded != 1 {
		t.Errorf("wanted 7 kept and 1 discarded, got %+v", st)
	}
	if tab.Total() != st.Symbols {
		t.Errorf("total %d disagrees with stats %d", tab.Total(), st.Symbols)
	}
}

func TestSymbolsAscending(t *testing.T) {
	tab := Table{0x10FFFF: 1, 'z': 4, 'a': 9, 0: 2}
	got := tab.Symbols()
	want := []Symbol{0, 'a', 'z', 0x10FFFF}
	if !slices.Equal(got, want) {
		t.Errorf("wanted %v, got %v", want, got)
	}
}

func TestAddNZero(t *testing.T) {
	tab := New()
	tab.AddN('q', 0)
	if tab.Len() != 0 {
		t.Errorf("zero count materialized: %v", tab)
	}
}

// Any partition of the inputs into batches, merged in any order,
// must agree with one sequential pass.
func TestMergePartitions(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	var files []string
	for range 40 {
		var b strings.Builder
		for range rng.IntN(200) {
			b.WriteRune(rune('a' + rng.IntN(26)))
			if rng.IntN(10) == 0 {
				b.WriteRune('é')
			}
		}
		files = append(files, b.String())
	}

	single, _, err := Count(strings.NewReader(strings.Join(files, "")))
	if err != nil {
		t.Fatal(err)
	}

	for _, batches := range []int{1, 2, 3, 7, 40} {
		t.Run(fmt.Sprint(batches), func(t *testing.T) {
			partials := make([]Table, batches)
			for i := range partials {
				partials[i] = New()
			}
			for i, f := range files {
				local, _, err := Count(strings.NewReader(f))
				if err != nil {
					t.Fatal(err)
				}
				partials[i%batches].Merge(local)
			}
			rng.Shuffle(len(partials), func(i, j int) { partials[i], partials[j] = partials[j], partials[i] })
			merged := New()
			for _, p := range partials {
				merged.Merge(p)
			}
			if !merged.Equal(single) {
				t.Errorf("merge of %d batches differs from a single pass", batches)
			}
		})
	}
}

func TestBinary(t *testing.T) {
	cases := []Table{
		{},
		{'A': 1},
		{0: 5, 'A': 2, 'B': 1, 0x10FFFF: 1 << 40},
	}
	for _, want := range cases {
		b, err := want.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		var got Table
		if err := got.UnmarshalBinary(b); err != nil {
			t.Fatal(err)
		}
		if !got.Equal(want) {
			t.Errorf("wanted %v, got %v", want, got)
		}
	}
}

func TestBinaryCorrupt(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		{1},             // missing pair
		{1, 1, 0},       // zero count
		{2, 1, 1, 0, 1}, // repeated symbol
		{0, 9},          // trailing garbage
	} {
		var tab Table
		if err := tab.UnmarshalBinary(b); err == nil {
			t.Errorf("UnmarshalBinary(%v): wanted error, got %v", b, tab)
		}
	}
}
