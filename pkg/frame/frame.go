// Package frame provides the DataFrame: an open columnar table with
// typed, zero-copy column accessors. A DataFrame wraps an engine handle
// and hands out chunked column views over the handle's memory.
//
// Lifetime contract: every column view, chunk, and iterator obtained
// from a DataFrame aliases memory owned by it. Using any of them after
// Close is undefined behavior. The views are read-only; a DataFrame may
// be read concurrently, but Rechunk mutates the column layout and must
// not race with any accessor.
package frame

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/basaltdata/basalt/pkg/chunked"
	"github.com/basaltdata/basalt/pkg/engine"
	"github.com/basaltdata/basalt/pkg/errors"
)

// Element mirrors chunked.Element: the primitives with zero-copy views.
type Element = chunked.Element

// DataFrame is an open columnar table.
type DataFrame struct {
	handle *engine.Handle
}

// Open reads every column of the Parquet file at path.
func Open(ctx context.Context, path string) (*DataFrame, error) {
	h, err := engine.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return &DataFrame{handle: h}, nil
}

// OpenColumns reads only the named columns (projection pushdown). The
// resulting DataFrame reports only the requested columns.
func OpenColumns(ctx context.Context, path string, columns ...string) (*DataFrame, error) {
	h, err := engine.OpenProjected(ctx, path, columns)
	if err != nil {
		return nil, err
	}
	return &DataFrame{handle: h}, nil
}

// fromHandle wraps an engine handle produced elsewhere (query collect).
func fromHandle(h *engine.Handle) *DataFrame {
	return &DataFrame{handle: h}
}

// FromHandle wraps a collected engine handle in a DataFrame.
func FromHandle(h *engine.Handle) *DataFrame {
	return fromHandle(h)
}

// NumRows returns the number of rows.
func (df *DataFrame) NumRows() int64 { return df.handle.NumRows() }

// NumCols returns the number of columns.
func (df *DataFrame) NumCols() int64 { return df.handle.NumCols() }

// Columns returns name and type metadata for every column in file order.
func (df *DataFrame) Columns() []engine.ColumnInfo { return df.handle.Columns() }

// Rechunk asks the engine to compact every column into one contiguous
// buffer. Optional; it returns whether any column actually changed.
// Existing column views are invalidated when it returns true.
func (df *DataFrame) Rechunk() bool { return df.handle.Rechunk() }

// Close releases the table. All column views become invalid.
func (df *DataFrame) Close() { df.handle.Close() }

// Handle exposes the underlying engine handle for advanced use.
func (df *DataFrame) Handle() *engine.Handle { return df.handle }

// SchemaJSON serializes the column metadata for logging and debugging.
func (df *DataFrame) SchemaJSON() ([]byte, error) {
	return json.Marshal(df.handle.Columns())
}

// Column returns a zero-copy chunked view of a primitive-typed column.
// Dispatch is per concrete type: one engine accessor per supported
// primitive, deliberately no type-erased fallback. A stored type that
// differs from T surfaces as a TypeMismatch error.
func Column[T Element](df *DataFrame, name string) (*chunked.Column[T], error) {
	var zero T
	switch any(zero).(type) {
	case int64:
		chunks, err := df.handle.Int64Chunks(name)
		if err != nil {
			return nil, err
		}
		return assemble[int64, T](chunks), nil
	case int32:
		chunks, err := df.handle.Int32Chunks(name)
		if err != nil {
			return nil, err
		}
		return assemble[int32, T](chunks), nil
	case uint64:
		chunks, err := df.handle.Uint64Chunks(name)
		if err != nil {
			return nil, err
		}
		return assemble[uint64, T](chunks), nil
	case float64:
		chunks, err := df.handle.Float64Chunks(name)
		if err != nil {
			return nil, err
		}
		return assemble[float64, T](chunks), nil
	case float32:
		chunks, err := df.handle.Float32Chunks(name)
		if err != nil {
			return nil, err
		}
		return assemble[float32, T](chunks), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"unsupported column element type %T", zero)
	}
}

// assemble builds a chunked column from engine buffers. U and T are the
// same concrete type whenever assemble is reached, so the per-chunk
// conversion compiles to a no-op reslice.
func assemble[U, T Element](chunks [][]U) *chunked.Column[T] {
	col := chunked.New[T]()
	for _, c := range chunks {
		col.AddChunk(any(c).([]T))
	}
	return col
}

// StringColumn materializes a string column. String data cannot be
// exposed as a fixed-width view, so this always allocates.
func (df *DataFrame) StringColumn(name string) ([]string, error) {
	return df.handle.StringColumn(name)
}

// BoolColumn materializes a boolean column. Boolean storage is
// bit-packed upstream, so there is no zero-copy path.
func (df *DataFrame) BoolColumn(name string) ([]bool, error) {
	return df.handle.BoolColumn(name)
}

// TimeColumn returns a zero-copy view of a timestamp column as epoch
// milliseconds.
func (df *DataFrame) TimeColumn(name string) (*chunked.Column[int64], error) {
	chunks, err := df.handle.TimestampChunks(name)
	if err != nil {
		return nil, err
	}
	col := chunked.New[int64]()
	for _, c := range chunks {
		col.AddChunk(c)
	}
	return col, nil
}
