package kfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	var (
		rb  ringBuffer
		buf = make([]byte, ringBufferSize)
	)

	if n, err := rb.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("expected empty buffer read to return (0, io.EOF); got (%d, %v)", n, err)
	}

	t.Run("partial reads", func(t *testing.T) {
		rb = ringBuffer{}
		_, _ = rb.Write([]byte("0123456789"))

		small := make([]byte, 4)
		n, err := rb.Read(small)
		if err != nil || n != 4 || string(small) != "0123" {
			t.Fatalf("unexpected read result: %d, %v, %q", n, err, small[:n])
		}

		var out bytes.Buffer
		if _, err = io.Copy(&out, &rb); err != nil {
			t.Fatal(err)
		}

		if exp, got := "456789", out.String(); got != exp {
			t.Fatalf("expected remaining data %q; got %q", exp, got)
		}
	})

	t.Run("overwrite oldest data", func(t *testing.T) {
		rb = ringBuffer{}

		// write ringBufferSize+10 bytes; the buffer can hold ringBufferSize-1
		payload := make([]byte, ringBufferSize+10)
		for i := range payload {
			payload[i] = byte(i % 256)
		}
		_, _ = rb.Write(payload)

		var out bytes.Buffer
		if _, err := io.Copy(&out, &rb); err != nil {
			t.Fatal(err)
		}

		exp := payload[len(payload)-(ringBufferSize-1):]
		if !bytes.Equal(out.Bytes(), exp) {
			t.Fatalf("expected the last %d written bytes to be retained", ringBufferSize-1)
		}
	})
}
