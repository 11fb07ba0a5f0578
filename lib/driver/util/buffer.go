package util

import (
	"bytes"
	"errors"
	"io"
)

// ErrWriterClosed is returned when writing to a closed flush writer
var ErrWriterClosed = errors.New("write to closed writer")

// NewBufferedReader returns a reader over a value that was loaded completely
func NewBufferedReader(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}

// flushWriter collects all writes and hands the complete buffer to flush on Close.
// Abort drops the buffer without calling flush.
type flushWriter struct {
	buf    bytes.Buffer
	flush  func(data []byte) error
	closed bool
}

// NewFlushWriter returns a writer that buffers everything in memory and calls
// flush exactly once with the full content when it is closed.
// The returned writer implements driver.Aborter.
func NewFlushWriter(flush func(data []byte) error) io.WriteCloser {
	return &flushWriter{flush: flush}
}

func (w *flushWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.buf.Write(p)
}

func (w *flushWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.flush(w.buf.Bytes())
}

func (w *flushWriter) Abort() error {
	w.closed = true
	w.buf.Reset()
	return nil
}
