package engine

import (
	"cmp"
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/basaltdata/basalt/pkg/errors"
	"github.com/basaltdata/basalt/pkg/logger"
	"github.com/basaltdata/basalt/pkg/metrics"
)

// FilterOp is a comparison operator for filter predicates.
type FilterOp int

const (
	Eq FilterOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// String returns the operator's symbolic form.
func (op FilterOp) String() string {
	switch op {
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	default:
		return "unknown"
	}
}

// Query accumulates a column projection and typed filter predicates,
// then materializes the matching rows in a single collect pass.
// Predicates are ANDed in registration order. The query is not consumed
// by Collect; calling it again re-issues the same read.
type Query struct {
	path     string
	selected []string
	filters  []filterEntry
	err      error
}

// filterEntry pairs a predicate's column with a typed evaluation thunk.
// The value type is resolved once when the filter is added, so
// heterogeneous predicates live in one homogeneous list.
type filterEntry struct {
	column string
	op     FilterOp
	eval   func(h *Handle, keep []bool) error
}

// NewQuery starts a query against the Parquet file at path.
func NewQuery(path string) *Query {
	return &Query{path: path}
}

// Select adds columns to the output projection. An empty selection
// means every column in the file.
func (q *Query) Select(columns ...string) *Query {
	q.selected = append(q.selected, columns...)
	return q
}

// FilterColumns returns the columns referenced by registered predicates.
func (q *Query) FilterColumns() []string {
	cols := make([]string, 0, len(q.filters))
	for _, f := range q.filters {
		cols = append(cols, f.column)
	}
	return cols
}

// FilterInt64 adds a predicate on an int64 column.
func (q *Query) FilterInt64(name string, op FilterOp, value int64) *Query {
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			chunks, err := h.Int64Chunks(name)
			if err != nil {
				return err
			}
			evalChunks(chunks, op, value, keep)
			return nil
		}})
	return q
}

// FilterInt32 adds a predicate on an int32 column.
func (q *Query) FilterInt32(name string, op FilterOp, value int32) *Query {
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			chunks, err := h.Int32Chunks(name)
			if err != nil {
				return err
			}
			evalChunks(chunks, op, value, keep)
			return nil
		}})
	return q
}

// FilterUint64 adds a predicate on a uint64 column.
func (q *Query) FilterUint64(name string, op FilterOp, value uint64) *Query {
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			chunks, err := h.Uint64Chunks(name)
			if err != nil {
				return err
			}
			evalChunks(chunks, op, value, keep)
			return nil
		}})
	return q
}

// FilterFloat64 adds a predicate on a float64 column.
func (q *Query) FilterFloat64(name string, op FilterOp, value float64) *Query {
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			chunks, err := h.Float64Chunks(name)
			if err != nil {
				return err
			}
			evalChunks(chunks, op, value, keep)
			return nil
		}})
	return q
}

// FilterFloat32 adds a predicate on a float32 column.
func (q *Query) FilterFloat32(name string, op FilterOp, value float32) *Query {
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			chunks, err := h.Float32Chunks(name)
			if err != nil {
				return err
			}
			evalChunks(chunks, op, value, keep)
			return nil
		}})
	return q
}

// FilterTimestamp adds a predicate on a timestamp column. The value is
// epoch milliseconds.
func (q *Query) FilterTimestamp(name string, op FilterOp, millis int64) *Query {
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			chunks, err := h.TimestampChunks(name)
			if err != nil {
				return err
			}
			evalChunks(chunks, op, millis, keep)
			return nil
		}})
	return q
}

// FilterString adds a predicate on a string column. Ordering operators
// compare lexicographically.
func (q *Query) FilterString(name string, op FilterOp, value string) *Query {
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			values, err := h.StringColumn(name)
			if err != nil {
				return err
			}
			for i := 0; i < len(values) && i < len(keep); i++ {
				if keep[i] && !compare(values[i], value, op) {
					keep[i] = false
				}
			}
			return nil
		}})
	return q
}

// FilterBool adds a predicate on a boolean column. Only Eq and Ne are
// meaningful for booleans; other operators fail at Collect.
func (q *Query) FilterBool(name string, op FilterOp, value bool) *Query {
	if op != Eq && op != Ne {
		q.fail(errors.Newf(errors.ErrorTypeQuery,
			"operator %s not supported for boolean column %q", op, name))
		return q
	}
	q.filters = append(q.filters, filterEntry{column: name, op: op,
		eval: func(h *Handle, keep []bool) error {
			values, err := h.BoolColumn(name)
			if err != nil {
				return err
			}
			for i := 0; i < len(values) && i < len(keep); i++ {
				if !keep[i] {
					continue
				}
				match := values[i] == value
				if op == Ne {
					match = !match
				}
				if !match {
					keep[i] = false
				}
			}
			return nil
		}})
	return q
}

// fail records the first construction error; Collect surfaces it.
func (q *Query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// scanColumns derives the column set actually read from disk: the
// explicit selection plus every filter-referenced column. Filter
// columns must be in the scan even when the caller never selected
// them, otherwise the predicate has nothing to evaluate against.
func (q *Query) scanColumns() []string {
	if len(q.selected) == 0 {
		return nil // no projection, read everything
	}
	scan := make([]string, 0, len(q.selected)+len(q.filters))
	seen := make(map[string]struct{}, len(q.selected)+len(q.filters))
	for _, name := range q.selected {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		scan = append(scan, name)
	}
	for _, f := range q.filters {
		if _, ok := seen[f.column]; ok {
			continue
		}
		seen[f.column] = struct{}{}
		scan = append(scan, f.column)
	}
	return scan
}

// Collect reads the scan projection, evaluates every predicate, and
// returns a handle over the matching rows.
func (q *Query) Collect(ctx context.Context) (*Handle, error) {
	start := time.Now()

	h, err := q.collect(ctx)
	if err != nil {
		metrics.QueriesExecuted.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.QueriesExecuted.WithLabelValues("success").Inc()
	metrics.ObserveSince(metrics.CollectLatency, start)

	logger.Debug("query collected",
		zap.String("path", q.path),
		zap.Int("filters", len(q.filters)),
		zap.Int64("rows", h.NumRows()),
		zap.Duration("elapsed", time.Since(start)))

	return h, nil
}

func (q *Query) collect(ctx context.Context) (*Handle, error) {
	if q.err != nil {
		return nil, q.err
	}

	scan := q.scanColumns()
	var h *Handle
	var err error
	if scan == nil {
		h, err = Open(ctx, q.path)
	} else {
		h, err = OpenProjected(ctx, q.path, scan)
	}
	if err != nil {
		return nil, err
	}

	if len(q.filters) == 0 {
		return h, nil
	}

	keep := make([]bool, h.NumRows())
	for i := range keep {
		keep[i] = true
	}
	for _, f := range q.filters {
		if err := f.eval(h, keep); err != nil {
			h.Close()
			return nil, err
		}
	}

	rows := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	if len(rows) == len(keep) {
		return h, nil
	}

	filtered, err := takeRows(h, rows)
	h.Close()
	if err != nil {
		return nil, err
	}
	return filtered, nil
}

// evalChunks clears keep[i] for every row whose value fails the
// predicate, walking the column chunk by chunk.
func evalChunks[T cmp.Ordered](chunks [][]T, op FilterOp, value T, keep []bool) {
	i := 0
	for _, chunk := range chunks {
		for _, v := range chunk {
			if i >= len(keep) {
				return
			}
			if keep[i] && !compare(v, value, op) {
				keep[i] = false
			}
			i++
		}
	}
}

func compare[T cmp.Ordered](a, b T, op FilterOp) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

// takeRows materializes a new table holding only the given rows, in
// ascending row order, for every column of h.
func takeRows(h *Handle, rows []int) (*Handle, error) {
	mem := memory.NewGoAllocator()
	schema := h.tbl.Schema()
	cols := make([]arrow.Column, 0, h.tbl.NumCols())

	for i := 0; i < int(h.tbl.NumCols()); i++ {
		arr, err := takeColumn(h.tbl.Column(i), schema.Field(i), rows, mem)
		if err != nil {
			return nil, err
		}
		cols = append(cols, arrow.NewColumnFromArr(schema.Field(i), arr))
		arr.Release()
	}

	tbl := array.NewTable(schema, cols, int64(len(rows)))
	return newHandle(h.path, tbl, mem), nil
}

// takeColumn gathers the given ascending row indices out of a chunked
// column into one contiguous array.
func takeColumn(col *arrow.Column, field arrow.Field, rows []int, mem memory.Allocator) (arrow.Array, error) {
	bldr := array.NewBuilder(mem, field.Type)
	defer bldr.Release()

	ri := 0
	base := 0
	for _, chunk := range col.Data().Chunks() {
		for ri < len(rows) && rows[ri] < base+chunk.Len() {
			idx := rows[ri] - base
			if err := appendValue(bldr, chunk, idx); err != nil {
				return nil, err
			}
			ri++
		}
		base += chunk.Len()
	}

	return bldr.NewArray(), nil
}

// appendValue copies one slot from a source array into a builder.
func appendValue(bldr array.Builder, src arrow.Array, i int) error {
	if src.IsNull(i) {
		bldr.AppendNull()
		return nil
	}
	switch arr := src.(type) {
	case *array.Int64:
		bldr.(*array.Int64Builder).Append(arr.Value(i))
	case *array.Int32:
		bldr.(*array.Int32Builder).Append(arr.Value(i))
	case *array.Uint64:
		bldr.(*array.Uint64Builder).Append(arr.Value(i))
	case *array.Float64:
		bldr.(*array.Float64Builder).Append(arr.Value(i))
	case *array.Float32:
		bldr.(*array.Float32Builder).Append(arr.Value(i))
	case *array.String:
		bldr.(*array.StringBuilder).Append(arr.Value(i))
	case *array.Boolean:
		bldr.(*array.BooleanBuilder).Append(arr.Value(i))
	case *array.Timestamp:
		bldr.(*array.TimestampBuilder).Append(arr.Value(i))
	default:
		return errors.Newf(errors.ErrorTypeQuery,
			"unsupported column type %s in filtered collect", src.DataType())
	}
	return nil
}
