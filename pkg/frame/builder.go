package frame

import (
	"context"
	"time"

	"github.com/basaltdata/basalt/pkg/engine"
	"github.com/basaltdata/basalt/pkg/errors"
)

// Filter operator aliases, so callers need only the frame package.
const (
	Eq = engine.Eq
	Ne = engine.Ne
	Lt = engine.Lt
	Le = engine.Le
	Gt = engine.Gt
	Ge = engine.Ge
)

// Builder accumulates a column selection and filter predicates before a
// single Collect. Without filters it degenerates to a plain (possibly
// projected) open; with filters it runs the engine's query path, and
// filter-referenced columns are added to the scan projection so the
// predicates have data to evaluate against.
type Builder struct {
	path     string
	selected []string
	filters  []filterSpec
	err      error
}

type filterSpec struct {
	column string
	apply  func(q *engine.Query)
}

// NewBuilder starts building a read of the Parquet file at path.
func NewBuilder(path string) *Builder {
	return &Builder{path: path}
}

// Select adds columns to the output projection. An empty selection
// means every column in the file.
func (b *Builder) Select(columns ...string) *Builder {
	b.selected = append(b.selected, columns...)
	return b
}

// Filter adds a typed predicate. The engine entry point is resolved
// from the value's type when the filter is added; unsupported value
// types surface as an error at Collect.
func (b *Builder) Filter(column string, op engine.FilterOp, value interface{}) *Builder {
	var apply func(q *engine.Query)
	switch v := value.(type) {
	case int64:
		apply = func(q *engine.Query) { q.FilterInt64(column, op, v) }
	case int:
		apply = func(q *engine.Query) { q.FilterInt64(column, op, int64(v)) }
	case int32:
		apply = func(q *engine.Query) { q.FilterInt32(column, op, v) }
	case uint64:
		apply = func(q *engine.Query) { q.FilterUint64(column, op, v) }
	case float64:
		apply = func(q *engine.Query) { q.FilterFloat64(column, op, v) }
	case float32:
		apply = func(q *engine.Query) { q.FilterFloat32(column, op, v) }
	case string:
		apply = func(q *engine.Query) { q.FilterString(column, op, v) }
	case bool:
		apply = func(q *engine.Query) { q.FilterBool(column, op, v) }
	case time.Time:
		apply = func(q *engine.Query) { q.FilterTimestamp(column, op, v.UnixMilli()) }
	default:
		if b.err == nil {
			b.err = errors.Newf(errors.ErrorTypeQuery,
				"unsupported filter value type %T for column %q", value, column)
		}
		return b
	}
	b.filters = append(b.filters, filterSpec{column: column, apply: apply})
	return b
}

// Collect executes the accumulated read and returns a DataFrame. The
// builder is not consumed; calling Collect again re-issues the read.
func (b *Builder) Collect(ctx context.Context) (*DataFrame, error) {
	if b.err != nil {
		return nil, b.err
	}

	// No filters: a plain open is enough.
	if len(b.filters) == 0 {
		if len(b.selected) == 0 {
			return Open(ctx, b.path)
		}
		return OpenColumns(ctx, b.path, b.selected...)
	}

	q := engine.NewQuery(b.path)
	if len(b.selected) > 0 {
		q.Select(b.selected...)
	}
	for _, f := range b.filters {
		f.apply(q)
	}

	h, err := q.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return fromHandle(h), nil
}
