// Package engine implements the Parquet table engine behind Basalt's
// typed access layer. It owns everything format-shaped: opening files,
// column projection, predicate evaluation during collect, and writing
// column data back out. Decoding and compression are delegated to
// Apache Arrow's Parquet implementation; row groups surface as the
// per-column chunks the access layer is built around.
package engine

import (
	"context"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/basaltdata/basalt/pkg/errors"
	"github.com/basaltdata/basalt/pkg/logger"
	"github.com/basaltdata/basalt/pkg/metrics"
)

// ColumnInfo describes one column of an open table.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Handle is an open, fully materialized columnar table. All chunk
// getters return views into memory owned by the handle; those views are
// invalid once Close is called.
type Handle struct {
	path   string
	tbl    arrow.Table
	mem    memory.Allocator
	logger *zap.Logger
}

// Open reads every column of the Parquet file at path.
func Open(ctx context.Context, path string) (*Handle, error) {
	return open(ctx, path, nil, "full")
}

// OpenProjected reads only the named columns (projection pushdown).
// The resulting handle reports only the requested columns.
func OpenProjected(ctx context.Context, path string, columns []string) (*Handle, error) {
	if len(columns) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "projection requires at least one column")
	}
	return open(ctx, path, columns, "projected")
}

func open(ctx context.Context, path string, columns []string, mode string) (*Handle, error) {
	start := time.Now()

	h, err := openTable(ctx, path, columns)
	if err != nil {
		metrics.FramesOpened.WithLabelValues(mode, "failure").Inc()
		return nil, err
	}

	metrics.FramesOpened.WithLabelValues(mode, "success").Inc()
	metrics.ObserveSince(metrics.OpenLatency, start)
	metrics.RowsRead.Add(float64(h.tbl.NumRows()))

	h.logger.Debug("opened parquet table",
		zap.Int64("rows", h.tbl.NumRows()),
		zap.Int64("columns", h.tbl.NumCols()),
		zap.Duration("elapsed", time.Since(start)))

	return h, nil
}

func openTable(ctx context.Context, path string, columns []string) (*Handle, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "parquet file not found").
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat parquet file").
			WithDetail("path", path)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open parquet file").
			WithDetail("path", path)
	}
	defer rdr.Close()

	mem := memory.NewGoAllocator()
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create arrow reader").
			WithDetail("path", path)
	}

	var tbl arrow.Table
	if columns == nil {
		tbl, err = fr.ReadTable(ctx)
	} else {
		var indices []int
		indices, err = columnIndices(fr, columns)
		if err != nil {
			return nil, err
		}
		rowGroups := make([]int, rdr.NumRowGroups())
		for i := range rowGroups {
			rowGroups[i] = i
		}
		tbl, err = fr.ReadRowGroups(ctx, indices, rowGroups)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read parquet table").
			WithDetail("path", path)
	}

	return newHandle(path, tbl, mem), nil
}

// columnIndices maps column names to leaf indices in file order.
func columnIndices(fr *pqarrow.FileReader, columns []string) ([]int, error) {
	schema, err := fr.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read parquet schema")
	}

	indices := make([]int, 0, len(columns))
	for _, name := range columns {
		matches := schema.FieldIndices(name)
		if len(matches) == 0 {
			return nil, errors.Newf(errors.ErrorTypeColumnNotFound,
				"column %q not found in file", name).
				WithDetail("available", fieldNames(schema))
		}
		indices = append(indices, matches[0])
	}
	return indices, nil
}

func fieldNames(schema *arrow.Schema) []string {
	names := make([]string, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	return names
}

func newHandle(path string, tbl arrow.Table, mem memory.Allocator) *Handle {
	return &Handle{
		path:   path,
		tbl:    tbl,
		mem:    mem,
		logger: logger.With(zap.String("path", path)),
	}
}

// Path returns the file path the handle was opened from. Handles
// produced by a query collect report the queried path.
func (h *Handle) Path() string { return h.path }

// NumRows returns the number of rows in the table.
func (h *Handle) NumRows() int64 { return h.tbl.NumRows() }

// NumCols returns the number of columns in the table.
func (h *Handle) NumCols() int64 { return h.tbl.NumCols() }

// Columns returns name and type metadata for every column, in file order.
func (h *Handle) Columns() []ColumnInfo {
	fields := h.tbl.Schema().Fields()
	infos := make([]ColumnInfo, 0, len(fields))
	for _, f := range fields {
		infos = append(infos, ColumnInfo{Name: f.Name, Type: typeName(f.Type)})
	}
	return infos
}

// typeName maps arrow types onto Basalt's column type vocabulary.
func typeName(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.INT64:
		return "int64"
	case arrow.INT32:
		return "int32"
	case arrow.UINT64:
		return "uint64"
	case arrow.FLOAT64:
		return "float64"
	case arrow.FLOAT32:
		return "float32"
	case arrow.STRING:
		return "string"
	case arrow.BOOL:
		return "bool"
	case arrow.TIMESTAMP:
		return "timestamp"
	default:
		return dt.String()
	}
}

// Rechunk concatenates each multi-chunk column into a single contiguous
// buffer. It returns true if any column actually changed. Rechunk
// invalidates chunk views handed out earlier and must not be called
// concurrently with any column access.
func (h *Handle) Rechunk() bool {
	changed := false
	schema := h.tbl.Schema()
	cols := make([]arrow.Column, 0, h.tbl.NumCols())

	for i := 0; i < int(h.tbl.NumCols()); i++ {
		col := h.tbl.Column(i)
		chunks := col.Data().Chunks()
		if len(chunks) <= 1 {
			cols = append(cols, *col)
			continue
		}

		merged, err := array.Concatenate(chunks, h.mem)
		if err != nil {
			h.logger.Warn("rechunk failed for column, keeping original chunks",
				zap.String("column", col.Name()), zap.Error(err))
			cols = append(cols, *col)
			continue
		}
		newCol := arrow.NewColumnFromArr(schema.Field(i), merged)
		merged.Release()
		cols = append(cols, newCol)
		changed = true
	}

	if !changed {
		return false
	}

	newTbl := array.NewTable(schema, cols, h.tbl.NumRows())
	h.tbl.Release()
	h.tbl = newTbl
	return true
}

// Close releases the table's memory. All chunk views obtained from this
// handle are invalid afterwards.
func (h *Handle) Close() {
	if h.tbl != nil {
		h.tbl.Release()
		h.tbl = nil
	}
}

// column returns the named column or a ColumnNotFound error.
func (h *Handle) column(name string) (*arrow.Column, error) {
	schema := h.tbl.Schema()
	matches := schema.FieldIndices(name)
	if len(matches) == 0 {
		return nil, errors.Newf(errors.ErrorTypeColumnNotFound,
			"column %q not found", name).
			WithDetail("available", fieldNames(schema))
	}
	return h.tbl.Column(matches[0]), nil
}

// typedColumn returns the named column after verifying its stored type.
func (h *Handle) typedColumn(name string, want arrow.Type, wantName string) (*arrow.Column, error) {
	col, err := h.column(name)
	if err != nil {
		return nil, err
	}
	if col.DataType().ID() != want {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q is %s, not %s", name, typeName(col.DataType()), wantName)
	}
	return col, nil
}
