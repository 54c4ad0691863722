package codec

import (
	"go.uber.org/zap"

	"github.com/basaltdata/basalt/pkg/engine"
	"github.com/basaltdata/basalt/pkg/logger"
)

// Writer buffers records and writes them to a Parquet file in one shot.
// Finish is the explicit flush and propagates any failure. Close is the
// teardown path for deferred cleanup: it flushes a non-empty buffer but
// only logs a flush error, since teardown has no caller left to
// receive one.
type Writer[R any] struct {
	path     string
	codec    *Codec[R]
	opts     []engine.WriterOption
	buffer   []R
	finished bool
}

// NewWriter creates a buffered record writer targeting path.
func NewWriter[R any](path string, c *Codec[R], opts ...engine.WriterOption) *Writer[R] {
	return &Writer[R]{path: path, codec: c, opts: opts}
}

// WriteRecord buffers a single record.
func (w *Writer[R]) WriteRecord(rec R) {
	w.buffer = append(w.buffer, rec)
}

// WriteRecords buffers multiple records at once.
func (w *Writer[R]) WriteRecords(recs []R) {
	w.buffer = append(w.buffer, recs...)
}

// BufferSize returns the number of buffered records.
func (w *Writer[R]) BufferSize() int { return len(w.buffer) }

// Finish flushes the buffer to the file. It is idempotent; once
// finished, further calls are no-ops. An empty buffer writes nothing.
func (w *Writer[R]) Finish() error {
	if w.finished {
		return nil
	}

	if len(w.buffer) > 0 {
		ew := engine.NewWriter(w.path, w.opts...)
		w.codec.WriteAll(ew, w.buffer)
		if err := ew.Finish(); err != nil {
			return err
		}
	}

	w.finished = true
	w.buffer = nil
	return nil
}

// Discard drops all buffered records without writing.
func (w *Writer[R]) Discard() {
	w.buffer = nil
	w.finished = true
}

// Close flushes any remaining records and swallows flush failures.
// Intended for defer; call Finish directly when the error matters.
func (w *Writer[R]) Close() {
	if err := w.Finish(); err != nil {
		logger.Warn("discarding buffered records, flush failed during close",
			zap.String("path", w.path), zap.Error(err))
	}
}
