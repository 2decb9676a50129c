package kfmt

import (
	"bytes"
	"errors"
	"testing"
)

func TestPrefixWriter(t *testing.T) {
	specs := []struct {
		writes []string
		exp    string
	}{
		{[]string{"line\n"}, "[vmsim] line\n"},
		{[]string{"a\nb\n"}, "[vmsim] a\n[vmsim] b\n"},
		{[]string{"par", "tial\n", "next"}, "[vmsim] partial\n[vmsim] next"},
		{[]string{"\n\n"}, "[vmsim] \n[vmsim] \n"},
		{[]string{""}, ""},
	}

	for specIndex, spec := range specs {
		var (
			buf bytes.Buffer
			w   = PrefixWriter{Sink: &buf, Prefix: []byte("[vmsim] ")}
		)

		for _, s := range spec.writes {
			n, err := w.Write([]byte(s))
			if err != nil {
				t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
			}
			if n != len(s) {
				t.Errorf("[spec %d] expected to write %d bytes; wrote %d", specIndex, len(s), n)
			}
		}

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected output %q; got %q", specIndex, spec.exp, got)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) { return 0, errors.New("sink closed") }

func TestPrefixWriterError(t *testing.T) {
	w := PrefixWriter{Sink: failingWriter{}, Prefix: []byte("> ")}
	if _, err := w.Write([]byte("data\n")); err == nil {
		t.Fatal("expected sink error to be propagated")
	}
}
