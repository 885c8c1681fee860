// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package utf8codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, s string) (runes []rune, malformed int) {
	t.Helper()
	r := NewReader(strings.NewReader(s))
	for {
		c, err := r.Next()
		if err == io.EOF {
			return
		} else if errors.Is(err, ErrMalformed) {
			malformed++
		} else if err != nil {
			t.Fatal(err)
		} else {
			runes = append(runes, c)
		}
	}
}

func TestReader(t *testing.T) {
	cases := []struct {
		in        string
		want      []rune
		malformed int
	}{
		{"", nil, 0},
		{"abc", []rune("abc"), 0},
		{"héllo", []rune("héllo"), 0},
		{"日本語", []rune("日本語"), 0},
		{"\U0001F600", []rune{0x1F600}, 0},
		{"�", []rune{0xFFFD}, 0},
		{"a\xffb", []rune("ab"), 1},
		{"a\xe6\x97", []rune("a"), 2},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, malformed := readAll(t, c.in)
			if string(got) != string(c.want) || malformed != c.malformed {
				t.Errorf("wanted %q with %d malformed, got %q with %d", string(c.want), c.malformed, string(got), malformed)
			}
		})
	}
}

func TestWriterRoundTrip(t *testing.T) {
	const text = "plain ascii, accents é, cjk 日本語, astral \U0001F600"
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, c := range text {
		if err := w.Write(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != text {
		t.Errorf("wanted %q, got %q", text, buf.String())
	}
}
