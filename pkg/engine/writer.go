package engine

import (
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/basaltdata/basalt/pkg/config"
	"github.com/basaltdata/basalt/pkg/errors"
	"github.com/basaltdata/basalt/pkg/logger"
	"github.com/basaltdata/basalt/pkg/metrics"
)

// timestampMs is the column type used for datetime data.
var timestampMs = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	rowGroupSize int64
	compression  string
}

// WithRowGroupSize sets the maximum number of rows per row group.
// Smaller row groups produce more chunks when the file is read back.
func WithRowGroupSize(n int64) WriterOption {
	return func(c *writerConfig) { c.rowGroupSize = n }
}

// WithCompression selects the column compression codec by name
// (none, snappy, zstd, gzip).
func WithCompression(name string) WriterOption {
	return func(c *writerConfig) { c.compression = name }
}

// FromConfig applies writer defaults from a loaded configuration.
func FromConfig(cfg config.WriterConfig) WriterOption {
	return func(c *writerConfig) {
		if cfg.RowGroupSize > 0 {
			c.rowGroupSize = cfg.RowGroupSize
		}
		if cfg.Compression != "" {
			c.compression = cfg.Compression
		}
	}
}

// Writer accumulates typed columns and writes them to a Parquet file in
// one shot at Finish. Columns must all have the same length.
type Writer struct {
	path     string
	cfg      writerConfig
	fields   []arrow.Field
	arrays   []arrow.Array
	mem      memory.Allocator
	logger   *zap.Logger
	finished bool
}

// NewWriter creates a writer targeting path.
func NewWriter(path string, opts ...WriterOption) *Writer {
	defaults := config.New().Writer
	cfg := writerConfig{
		rowGroupSize: defaults.RowGroupSize,
		compression:  defaults.Compression,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Writer{
		path:   path,
		cfg:    cfg,
		mem:    memory.NewGoAllocator(),
		logger: logger.With(zap.String("path", path)),
	}
}

// AddInt64Column appends an int64 column.
func (w *Writer) AddInt64Column(name string, values []int64) {
	bldr := array.NewInt64Builder(w.mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	w.add(name, arrow.PrimitiveTypes.Int64, bldr.NewArray())
}

// AddInt32Column appends an int32 column.
func (w *Writer) AddInt32Column(name string, values []int32) {
	bldr := array.NewInt32Builder(w.mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	w.add(name, arrow.PrimitiveTypes.Int32, bldr.NewArray())
}

// AddUint64Column appends a uint64 column.
func (w *Writer) AddUint64Column(name string, values []uint64) {
	bldr := array.NewUint64Builder(w.mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	w.add(name, arrow.PrimitiveTypes.Uint64, bldr.NewArray())
}

// AddFloat64Column appends a float64 column.
func (w *Writer) AddFloat64Column(name string, values []float64) {
	bldr := array.NewFloat64Builder(w.mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	w.add(name, arrow.PrimitiveTypes.Float64, bldr.NewArray())
}

// AddFloat32Column appends a float32 column.
func (w *Writer) AddFloat32Column(name string, values []float32) {
	bldr := array.NewFloat32Builder(w.mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	w.add(name, arrow.PrimitiveTypes.Float32, bldr.NewArray())
}

// AddStringColumn appends a string column.
func (w *Writer) AddStringColumn(name string, values []string) {
	bldr := array.NewStringBuilder(w.mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	w.add(name, arrow.BinaryTypes.String, bldr.NewArray())
}

// AddBoolColumn appends a boolean column. Values arrive one byte per
// element; the bit-packed on-disk form is the engine's concern.
func (w *Writer) AddBoolColumn(name string, values []bool) {
	bldr := array.NewBooleanBuilder(w.mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	w.add(name, arrow.FixedWidthTypes.Boolean, bldr.NewArray())
}

// AddTimestampColumn appends a datetime column from epoch milliseconds.
func (w *Writer) AddTimestampColumn(name string, millis []int64) {
	bldr := array.NewTimestampBuilder(w.mem, timestampMs)
	defer bldr.Release()
	values := make([]arrow.Timestamp, len(millis))
	for i, ms := range millis {
		values[i] = arrow.Timestamp(ms)
	}
	bldr.AppendValues(values, nil)
	w.add(name, timestampMs, bldr.NewArray())
}

func (w *Writer) add(name string, dt arrow.DataType, arr arrow.Array) {
	w.fields = append(w.fields, arrow.Field{Name: name, Type: dt})
	w.arrays = append(w.arrays, arr)
}

// NumColumns returns the number of columns added so far.
func (w *Writer) NumColumns() int { return len(w.arrays) }

// Finish validates the accumulated columns and writes the Parquet file.
// It is idempotent; a second call is a no-op. Errors propagate to the
// caller, unlike codec.Writer.Close which only logs them because
// teardown has no caller left to receive a failure.
func (w *Writer) Finish() error {
	if w.finished {
		return nil
	}

	if len(w.arrays) == 0 {
		return errors.New(errors.ErrorTypeValidation, "no columns to write")
	}

	numRows := w.arrays[0].Len()
	for i, arr := range w.arrays {
		if arr.Len() != numRows {
			return errors.Newf(errors.ErrorTypeValidation,
				"column %q has %d rows, expected %d", w.fields[i].Name, arr.Len(), numRows)
		}
	}

	codec, err := compressionCodec(w.cfg.compression)
	if err != nil {
		return err
	}

	start := time.Now()

	schema := arrow.NewSchema(w.fields, nil)
	cols := make([]arrow.Column, 0, len(w.arrays))
	for i, arr := range w.arrays {
		cols = append(cols, arrow.NewColumnFromArr(w.fields[i], arr))
	}
	tbl := array.NewTable(schema, cols, int64(numRows))
	defer tbl.Release()

	f, err := os.Create(w.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create parquet file").
			WithDetail("path", w.path)
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithMaxRowGroupLength(w.cfg.rowGroupSize),
	)
	arrProps := pqarrow.DefaultWriterProps()

	// pqarrow.WriteTable closes the sink when it writes the footer, so f must
	// not be closed again on success.
	if err := pqarrow.WriteTable(tbl, f, w.cfg.rowGroupSize, props, arrProps); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write parquet table").
			WithDetail("path", w.path)
	}

	w.release()
	w.finished = true

	metrics.RowsWritten.Add(float64(numRows))
	w.logger.Debug("wrote parquet file",
		zap.Int("rows", numRows),
		zap.Int("columns", len(cols)),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

// Discard drops all accumulated columns without writing.
func (w *Writer) Discard() {
	w.release()
	w.finished = true
}

func (w *Writer) release() {
	for _, arr := range w.arrays {
		arr.Release()
	}
	w.arrays = nil
	w.fields = nil
}

// compressionCodec maps a codec name onto the Parquet compression type.
func compressionCodec(name string) (compress.Compression, error) {
	switch name {
	case "none", "":
		return compress.Codecs.Uncompressed, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig,
			"unknown compression codec %q", name)
	}
}
