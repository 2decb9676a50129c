package kfmt

import (
	"bytes"
	"strings"
	"testing"
)

func TestFprintf(t *testing.T) {
	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{"hello %s", []interface{}{"world"}, "hello world"},
		{"%5s|", []interface{}{"ab"}, "   ab|"},
		{"%s", []interface{}{[]byte("raw")}, "raw"},
		{"%4s", []interface{}{[]byte("raw")}, " raw"},
		{"%d", []interface{}{-42}, "-42"},
		{"%5d", []interface{}{-42}, "  -42"},
		{"%d", []interface{}{uint8(255)}, "255"},
		{"%d", []interface{}{int8(-128)}, "-128"},
		{"%d", []interface{}{int16(1024)}, "1024"},
		{"%d", []interface{}{uint16(65535)}, "65535"},
		{"%d", []interface{}{int32(-7)}, "-7"},
		{"%d", []interface{}{uint32(7)}, "7"},
		{"%d", []interface{}{uint(25)}, "25"},
		{"%d", []interface{}{int64(-9223372036854775808)}, "-9223372036854775808"},
		{"%x", []interface{}{uintptr(0xb8000)}, "b8000"},
		{"%16x", []interface{}{uint64(0x1000)}, "0000000000001000"},
		{"%x", []interface{}{uint64(0xffffffffffffffff)}, "ffffffffffffffff"},
		{"%4x", []interface{}{-0x1f}, "-01f"},
		{"%o", []interface{}{8}, "10"},
		{"%40d", []interface{}{1}, strings.Repeat(" ", 30) + "1"},
		{"%t %t", []interface{}{true, false}, "true false"},
		{"100%%", nil, "100%"},
		{"%d", nil, "%!(MISSING)"},
		{"%d", []interface{}{"str"}, "%!(WRONGTYPE)"},
		{"%s", []interface{}{42}, "%!(WRONGTYPE)"},
		{"%t", []interface{}{1}, "%!(WRONGTYPE)"},
		{"no args", []interface{}{1}, "no args%!(EXTRA)"},
		{"trailing %", nil, "trailing %!(NOVERB)"},
		{"%q", []interface{}{1}, "%!(NOVERB)%!(EXTRA)"},
		{"[%s] frame 0x%x of %d", []interface{}{"pmm", uintptr(0x1000), 256}, "[pmm] frame 0x1000 of 256"},
	}

	var buf bytes.Buffer
	for specIndex, spec := range specs {
		buf.Reset()
		Fprintf(&buf, spec.format, spec.args...)

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected to get %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestPrintfEarlyBuffering(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer = ringBuffer{}
	}()

	outputSink = nil
	earlyPrintBuffer = ringBuffer{}

	Printf("[boot] early %s\n", "message")

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if exp, got := "[boot] early message\n", buf.String(); got != exp {
		t.Fatalf("expected buffered output %q to be replayed; got %q", exp, got)
	}

	Printf("after %d", 1)
	if exp, got := "[boot] early message\nafter 1", buf.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}
