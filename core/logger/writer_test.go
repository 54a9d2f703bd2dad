package logger

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterFansOut(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{a, nil, b}, 16)
	for _, line := range []string{"one\n", "two\n"} {
		if err := aw.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if a.String() != "one\ntwo\n" || b.String() != "one\ntwo\n" {
		t.Fatalf("sinks = %q / %q", a.String(), b.String())
	}
}

func TestAsyncWriterSkipsBrokenSink(t *testing.T) {
	good := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{brokenWriter{}, good}, 16)
	_ = aw.Write([]byte("a\n"))
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Write([]byte("b\n")); err != nil {
		t.Fatalf("write must succeed while a sink is healthy: %v", err)
	}
	err := aw.Close()
	if err == nil {
		t.Fatal("close must surface the broken sink")
	}
	if good.String() != "a\nb\n" {
		t.Fatalf("healthy sink = %q", good.String())
	}
}

func TestAsyncWriterFailsWhenAllSinksBroken(t *testing.T) {
	aw := newAsyncWriter([]io.Writer{brokenWriter{}}, 16)
	_ = aw.Write([]byte("a\n"))
	_ = aw.Flush()
	if err := aw.Write([]byte("b\n")); err == nil {
		t.Fatal("expected error once every sink failed")
	}
	_ = aw.Close()
	if err := aw.Flush(); err == nil {
		t.Fatal("flush after close must report the sink error")
	}
}
