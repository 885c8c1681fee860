// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package huffman

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"

	"github.com/elliotnunn/huffdir/internal/freq"
)

func tableOf(syms []freq.Symbol) freq.Table {
	t := freq.New()
	for _, s := range syms {
		t.Add(s)
	}
	return t
}

func mustCodes(t *testing.T, tab freq.Table) (*Tree, Codes) {
	t.Helper()
	tr, err := Build(tab)
	if err != nil {
		t.Fatal(err)
	}
	codes, err := tr.Codes()
	if err != nil {
		t.Fatal(err)
	}
	return tr, codes
}

func TestABC(t *testing.T) {
	input := []freq.Symbol{65, 65, 66, 67}
	tr, codes := mustCodes(t, tableOf(input))

	want := map[freq.Symbol]string{65: "0", 66: "10", 67: "11"}
	for s, w := range want {
		if got := codes[s].String(); got != w {
			t.Errorf("code for %q: wanted %s, got %s", rune(s), w, got)
		}
	}

	payload, err := EncodeSymbols(codes, input)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte{0x2C}) {
		t.Errorf("wanted payload 2c, got %x", payload)
	}

	got, err := DecodeSymbols(payload, tr, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, input) {
		t.Errorf("wanted %v, got %v", input, got)
	}
}

func TestSingleSymbol(t *testing.T) {
	for _, n := range []int{1, 7, 8, 9, 16, 1000} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			input := slices.Repeat([]freq.Symbol{'x'}, n)
			tr, codes := mustCodes(t, tableOf(input))
			if tr.Len() != 1 || !tr.IsLeaf(tr.Root()) {
				t.Fatalf("wanted a one-node tree, got %d nodes", tr.Len())
			}
			if c := codes['x']; c != (Code{0, 1}) {
				t.Fatalf("wanted code 0, got %s", c)
			}
			payload, err := EncodeSymbols(codes, input)
			if err != nil {
				t.Fatal(err)
			}
			if len(payload) != (n+7)/8 {
				t.Errorf("wanted %d payload bytes, got %d", (n+7)/8, len(payload))
			}
			got, err := DecodeSymbols(payload, tr, uint32(n))
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, input) {
				t.Errorf("round trip of %d symbols failed", n)
			}
		})
	}
}

func TestEmptyTable(t *testing.T) {
	if _, err := Build(freq.New()); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("wanted ErrEmptyTable, got %v", err)
	}
}

func randomTable(rng *rand.Rand) freq.Table {
	tab := freq.New()
	for range 1 + rng.IntN(300) {
		tab.AddN(freq.Symbol(rng.IntN(int(freq.MaxSymbol))), 1+uint64(rng.IntN(1000)))
	}
	return tab
}

func TestPrefixFree(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := range 50 {
		tab := randomTable(rng)
		_, codes := mustCodes(t, tab)
		if len(codes) != tab.Len() {
			t.Fatalf("table %d: wanted %d codes, got %d", i, tab.Len(), len(codes))
		}
		for a, ca := range codes {
			for b, cb := range codes {
				if a != b && ca.HasPrefix(cb) {
					t.Fatalf("table %d: code %s for %#x has prefix %s for %#x", i, ca, a, cb, b)
				}
			}
		}
	}
}

func TestWeights(t *testing.T) {
	tab := freq.Table{'a': 5, 'b': 9, 'c': 12, 'd': 13, 'e': 16, 'f': 45}
	tr, codes := mustCodes(t, tab)
	if w := tr.Weight(tr.Root()); w != tab.Total() {
		t.Errorf("root weight: wanted %d, got %d", tab.Total(), w)
	}
	if tr.Len() != 2*tab.Len()-1 {
		t.Errorf("wanted %d nodes, got %d", 2*tab.Len()-1, tr.Len())
	}
	var bits uint64
	for s, c := range codes {
		bits += tab[s] * uint64(c.Len)
	}
	if bits != 224 { // textbook optimum for these weights
		t.Errorf("wanted 224 encoded bits, got %d", bits)
	}
}

func TestDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for range 20 {
		tab := randomTable(rng)
		a, _ := Build(tab)
		b, _ := Build(tab)
		if !reflect.DeepEqual(a, b) {
			t.Fatal("two builds from one table differ")
		}
	}
}

func TestShortPayload(t *testing.T) {
	input := []freq.Symbol{65, 65, 66, 67}
	tr, codes := mustCodes(t, tableOf(input))
	payload, _ := EncodeSymbols(codes, input)
	// the padding zeros decode as two more A's, a seventh symbol does not fit
	_, err := DecodeSymbols(payload, tr, 7)
	if !errors.Is(err, ErrShortPayload) {
		t.Errorf("wanted ErrShortPayload, got %v", err)
	}
	if _, err := DecodeSymbols(nil, tr, 1); !errors.Is(err, ErrShortPayload) {
		t.Errorf("empty payload: wanted ErrShortPayload, got %v", err)
	}
}

func TestPaddingNotWalked(t *testing.T) {
	// "10" "11" then six padding zeros, which would decode as A if walked
	tr, _ := mustCodes(t, freq.Table{65: 2, 66: 1, 67: 1})
	got, err := DecodeSymbols([]byte{0xB0}, tr, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []freq.Symbol{66, 67}) {
		t.Errorf("wanted [66 67], got %v", got)
	}
}

func TestUnknownSymbol(t *testing.T) {
	_, codes := mustCodes(t, freq.Table{'a': 1, 'b': 1})
	if _, err := EncodeSymbols(codes, []freq.Symbol{'a', 'z'}); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("wanted ErrUnknownSymbol, got %v", err)
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("AABC"))
	f.Add([]byte("x"))
	f.Add([]byte("the quick brown fox jumps over the lazy dog"))
	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) == 0 {
			t.Skip()
		}
		input := make([]freq.Symbol, len(data))
		for i, b := range data {
			input[i] = freq.Symbol(b)
		}
		tr, codes := mustCodes(t, tableOf(input))
		payload, err := EncodeSymbols(codes, input)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeSymbols(payload, tr, uint32(len(input)))
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, input) {
			t.Errorf("wanted %v, got %v", input, got)
		}
	})
}
