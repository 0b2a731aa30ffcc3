package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
)

// JSONLTraceWriter writes a Header followed by TraceStep records as JSON
// Lines. It is safe for concurrent use.
type JSONLTraceWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	buf    *bufio.Writer
	closer io.Closer // set only when the writer owns the file
	steps  uint64
	closed bool
}

// ErrTraceWriterClosed is returned when writing after Close.
var ErrTraceWriterClosed = errors.New("jsonl trace writer is closed")

func newJSONLTraceWriter(w io.Writer, size int, closer io.Closer) *JSONLTraceWriter {
	buf := bufio.NewWriterSize(w, size)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONLTraceWriter{enc: enc, buf: buf, closer: closer}
}

// NewJSONLTraceWriter writes to w. Close flushes but does not close w.
func NewJSONLTraceWriter(w io.Writer) *JSONLTraceWriter {
	return newJSONLTraceWriter(w, 64*1024, nil)
}

// NewJSONLTraceWriterFile creates (or truncates) path. Close closes the file.
func NewJSONLTraceWriterFile(path string) (*JSONLTraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return newJSONLTraceWriter(f, 64*1024, f), nil
}

// NewJSONLTraceWriterStdout writes to stdout with a small buffer.
func NewJSONLTraceWriterStdout() *JSONLTraceWriter {
	return newJSONLTraceWriter(os.Stdout, 4*1024, nil)
}

func (w *JSONLTraceWriter) encode(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrTraceWriterClosed
	}
	return w.enc.Encode(v)
}

func (w *JSONLTraceWriter) WriteHeader(h *Header) error {
	return w.encode(h)
}

func (w *JSONLTraceWriter) WriteStep(step *TraceStep) error {
	if err := w.encode(step); err != nil {
		return err
	}
	w.mu.Lock()
	w.steps++
	w.mu.Unlock()
	return nil
}

// Steps is the number of steps written so far.
func (w *JSONLTraceWriter) Steps() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps
}

func (w *JSONLTraceWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrTraceWriterClosed
	}
	return w.buf.Flush()
}

// Close flushes buffered records and closes the file if the writer owns one.
// Closing twice is a no-op.
func (w *JSONLTraceWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.buf.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
