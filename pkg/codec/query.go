package codec

import (
	"context"
	"time"

	"github.com/basaltdata/basalt/pkg/engine"
	"github.com/basaltdata/basalt/pkg/errors"
	"github.com/basaltdata/basalt/pkg/frame"
)

// Query reads records of type R with projection and predicate pushdown.
// Field descriptors from the codec translate record fields into column
// names; the engine receives the selected columns plus every
// filter-referenced column, evaluates the predicates in one collect
// pass, and the codec materializes only the selected fields. Everything
// else keeps its zero value.
type Query[R any] struct {
	path     string
	codec    *Codec[R]
	selected []string
	filters  []querySpec
	err      error
}

type querySpec struct {
	column string
	apply  func(q *engine.Query)
}

// NewQuery starts a typed query against the Parquet file at path.
func NewQuery[R any](path string, c *Codec[R]) *Query[R] {
	return &Query[R]{path: path, codec: c}
}

// Select adds fields to the output projection. An empty selection means
// every registered column.
func (q *Query[R]) Select(fields ...*Field) *Query[R] {
	for _, f := range fields {
		name, err := q.codec.FindColumnName(f)
		if err != nil {
			q.fail(err)
			return q
		}
		q.selected = append(q.selected, name)
	}
	return q
}

// SelectColumns adds columns to the output projection by name.
func (q *Query[R]) SelectColumns(names ...string) *Query[R] {
	q.selected = append(q.selected, names...)
	return q
}

// Filter adds a typed predicate on a registered field. The engine entry
// point is chosen from the field's registered kind; a value whose type
// does not match the kind is an error, surfaced at Collect.
func (q *Query[R]) Filter(f *Field, op engine.FilterOp, value interface{}) *Query[R] {
	column, err := q.codec.FindColumnName(f)
	if err != nil {
		q.fail(err)
		return q
	}

	apply, err := filterThunk(column, f.kind, op, value)
	if err != nil {
		q.fail(err)
		return q
	}

	q.filters = append(q.filters, querySpec{column: column, apply: apply})
	return q
}

// filterThunk resolves a predicate to its typed engine entry point.
func filterThunk(column string, kind Kind, op engine.FilterOp, value interface{}) (func(q *engine.Query), error) {
	mismatch := func() error {
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"filter value %T does not match column %q of type %s", value, column, kind)
	}

	switch kind {
	case KindInt64:
		switch v := value.(type) {
		case int64:
			return func(q *engine.Query) { q.FilterInt64(column, op, v) }, nil
		case int:
			return func(q *engine.Query) { q.FilterInt64(column, op, int64(v)) }, nil
		}
	case KindInt32:
		if v, ok := value.(int32); ok {
			return func(q *engine.Query) { q.FilterInt32(column, op, v) }, nil
		}
	case KindUint64:
		if v, ok := value.(uint64); ok {
			return func(q *engine.Query) { q.FilterUint64(column, op, v) }, nil
		}
	case KindFloat64:
		if v, ok := value.(float64); ok {
			return func(q *engine.Query) { q.FilterFloat64(column, op, v) }, nil
		}
	case KindFloat32:
		if v, ok := value.(float32); ok {
			return func(q *engine.Query) { q.FilterFloat32(column, op, v) }, nil
		}
	case KindString:
		if v, ok := value.(string); ok {
			return func(q *engine.Query) { q.FilterString(column, op, v) }, nil
		}
	case KindBool:
		if v, ok := value.(bool); ok {
			return func(q *engine.Query) { q.FilterBool(column, op, v) }, nil
		}
	case KindTime:
		if v, ok := value.(time.Time); ok {
			return func(q *engine.Query) { q.FilterTimestamp(column, op, v.UnixMilli()) }, nil
		}
	}
	return nil, mismatch()
}

func (q *Query[R]) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// Collect executes the query and materializes the matching records.
// The query is reusable; calling Collect again re-issues the same read.
func (q *Query[R]) Collect(ctx context.Context) ([]R, error) {
	if q.err != nil {
		return nil, q.err
	}

	// Empty selection means every registered column.
	effective := q.selected
	if len(effective) == 0 {
		effective = q.codec.ColumnNames()
	}

	eq := engine.NewQuery(q.path).Select(effective...)
	for _, f := range q.filters {
		f.apply(eq)
	}

	h, err := eq.Collect(ctx)
	if err != nil {
		return nil, err
	}
	df := frame.FromHandle(h)
	defer df.Close()

	return q.codec.ReadSelected(df, effective)
}
