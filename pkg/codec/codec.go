// Package codec maps between Go record structs and named columns. A
// Codec is built once per record type by registering each field under
// its column name with a typed accessor; reads then fan each column
// into the matching struct field and writes gather each field into a
// column buffer.
//
// Read strategy is fixed per field at registration time: primitive
// fields use the zero-copy chunked column path, string fields use the
// allocating string accessor, and boolean fields always use the
// allocating path because boolean storage is bit-packed upstream and
// cannot be viewed as fixed-width elements.
package codec

import (
	"reflect"
	"sync"
	"time"

	"github.com/basaltdata/basalt/pkg/chunked"
	"github.com/basaltdata/basalt/pkg/engine"
	"github.com/basaltdata/basalt/pkg/errors"
	"github.com/basaltdata/basalt/pkg/frame"
)

// Kind identifies the value type a field was registered with. Dispatch
// is a tagged variant per supported type, never a runtime cast, so a
// mismatched filter value is a checkable failure.
type Kind int

const (
	KindInt64 Kind = iota
	KindInt32
	KindUint64
	KindFloat64
	KindFloat32
	KindString
	KindBool
	KindTime
)

// String returns the kind's column type name.
func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindInt32:
		return "int32"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindFloat32:
		return "float32"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Field is the descriptor returned by codec registration. It stands in
// for the registering accessor in Select and Filter calls.
type Field struct {
	column string
	kind   Kind
	owner  interface{} // the codec that registered this field
}

// Column returns the column name the field was registered under.
func (f *Field) Column() string { return f.column }

// Kind returns the field's registered value type.
func (f *Field) Kind() Kind { return f.kind }

type reader[R any] func(df *frame.DataFrame, out []R) error

type writer[R any] func(w *engine.Writer, recs []R)

// Codec maps the fields of record type R to named columns. Build it
// once through For; it is immutable after construction. The entries of
// fields, readers, and writers at the same index describe the same
// registered field.
type Codec[R any] struct {
	fields  []*Field
	readers []reader[R]
	writers []writer[R]
}

// registry caches one codec per record type for the process lifetime.
var registry sync.Map // reflect.Type -> codec

// For returns the process-wide codec for R, building it on first use.
// The build function registers every persisted field:
//
//	codec.For(func(c *codec.Codec[Tick]) {
//	    c.Int64("id", func(t *Tick) *int64 { return &t.ID })
//	    c.Float64("price", func(t *Tick) *float64 { return &t.Price })
//	})
func For[R any](build func(*Codec[R])) *Codec[R] {
	key := reflect.TypeOf((*R)(nil))
	if v, ok := registry.Load(key); ok {
		return v.(*Codec[R])
	}
	c := &Codec[R]{}
	build(c)
	if v, loaded := registry.LoadOrStore(key, c); loaded {
		return v.(*Codec[R])
	}
	return c
}

func (c *Codec[R]) register(column string, kind Kind, r reader[R], w writer[R]) *Field {
	f := &Field{column: column, kind: kind, owner: c}
	c.fields = append(c.fields, f)
	c.readers = append(c.readers, r)
	c.writers = append(c.writers, w)
	return f
}

// Int64 registers an int64 field under the given column name.
func (c *Codec[R]) Int64(column string, field func(*R) *int64) *Field {
	return c.register(column, KindInt64,
		func(df *frame.DataFrame, out []R) error {
			col, err := frame.Column[int64](df, column)
			if err != nil {
				return err
			}
			copyChunked(col, out, field)
			return nil
		},
		func(w *engine.Writer, recs []R) {
			w.AddInt64Column(column, gather(recs, field))
		})
}

// Int32 registers an int32 field under the given column name.
func (c *Codec[R]) Int32(column string, field func(*R) *int32) *Field {
	return c.register(column, KindInt32,
		func(df *frame.DataFrame, out []R) error {
			col, err := frame.Column[int32](df, column)
			if err != nil {
				return err
			}
			copyChunked(col, out, field)
			return nil
		},
		func(w *engine.Writer, recs []R) {
			w.AddInt32Column(column, gather(recs, field))
		})
}

// Uint64 registers a uint64 field under the given column name.
func (c *Codec[R]) Uint64(column string, field func(*R) *uint64) *Field {
	return c.register(column, KindUint64,
		func(df *frame.DataFrame, out []R) error {
			col, err := frame.Column[uint64](df, column)
			if err != nil {
				return err
			}
			copyChunked(col, out, field)
			return nil
		},
		func(w *engine.Writer, recs []R) {
			w.AddUint64Column(column, gather(recs, field))
		})
}

// Float64 registers a float64 field under the given column name.
func (c *Codec[R]) Float64(column string, field func(*R) *float64) *Field {
	return c.register(column, KindFloat64,
		func(df *frame.DataFrame, out []R) error {
			col, err := frame.Column[float64](df, column)
			if err != nil {
				return err
			}
			copyChunked(col, out, field)
			return nil
		},
		func(w *engine.Writer, recs []R) {
			w.AddFloat64Column(column, gather(recs, field))
		})
}

// Float32 registers a float32 field under the given column name.
func (c *Codec[R]) Float32(column string, field func(*R) *float32) *Field {
	return c.register(column, KindFloat32,
		func(df *frame.DataFrame, out []R) error {
			col, err := frame.Column[float32](df, column)
			if err != nil {
				return err
			}
			copyChunked(col, out, field)
			return nil
		},
		func(w *engine.Writer, recs []R) {
			w.AddFloat32Column(column, gather(recs, field))
		})
}

// String registers a string field under the given column name. Strings
// always allocate on read; each value is moved into its record.
func (c *Codec[R]) String(column string, field func(*R) *string) *Field {
	return c.register(column, KindString,
		func(df *frame.DataFrame, out []R) error {
			values, err := df.StringColumn(column)
			if err != nil {
				return err
			}
			for i := 0; i < len(values) && i < len(out); i++ {
				*field(&out[i]) = values[i]
			}
			return nil
		},
		func(w *engine.Writer, recs []R) {
			w.AddStringColumn(column, gather(recs, field))
		})
}

// Bool registers a boolean field under the given column name. Boolean
// columns never take the zero-copy path: the storage is bit-packed, so
// both directions go through materializing engine accessors.
func (c *Codec[R]) Bool(column string, field func(*R) *bool) *Field {
	return c.register(column, KindBool,
		func(df *frame.DataFrame, out []R) error {
			values, err := df.BoolColumn(column)
			if err != nil {
				return err
			}
			for i := 0; i < len(values) && i < len(out); i++ {
				*field(&out[i]) = values[i]
			}
			return nil
		},
		func(w *engine.Writer, recs []R) {
			w.AddBoolColumn(column, gather(recs, field))
		})
}

// Time registers a time.Time field under the given column name. The
// column is stored as a timestamp in epoch milliseconds; values read
// back in UTC.
func (c *Codec[R]) Time(column string, field func(*R) *time.Time) *Field {
	return c.register(column, KindTime,
		func(df *frame.DataFrame, out []R) error {
			col, err := df.TimeColumn(column)
			if err != nil {
				return err
			}
			i := 0
			for _, chunk := range col.Chunks() {
				for _, ms := range chunk.Data() {
					if i >= len(out) {
						return nil
					}
					*field(&out[i]) = time.UnixMilli(ms).UTC()
					i++
				}
			}
			return nil
		},
		func(w *engine.Writer, recs []R) {
			millis := make([]int64, len(recs))
			for i := range recs {
				millis[i] = field(&recs[i]).UnixMilli()
			}
			w.AddTimestampColumn(column, millis)
		})
}

// copyChunked copies a chunked column into one struct field of every
// record, chunk by chunk, stopping at whichever is shorter. Walking the
// chunks directly avoids the per-element chunk lookup of global random
// access.
func copyChunked[R any, T chunked.Element](col *chunked.Column[T], out []R, field func(*R) *T) {
	i := 0
	for _, chunk := range col.Chunks() {
		for _, v := range chunk.Data() {
			if i >= len(out) {
				return
			}
			*field(&out[i]) = v
			i++
		}
	}
}

// gather builds the column buffer for one field across every record.
func gather[R any, T any](recs []R, field func(*R) *T) []T {
	values := make([]T, len(recs))
	for i := range recs {
		values[i] = *field(&recs[i])
	}
	return values
}

// ColumnNames returns the registered column names in registration order.
func (c *Codec[R]) ColumnNames() []string {
	names := make([]string, 0, len(c.fields))
	for _, f := range c.fields {
		names = append(names, f.column)
	}
	return names
}

// Fields returns the registered field descriptors in registration order.
func (c *Codec[R]) Fields() []*Field { return c.fields }

// FindColumnName resolves a field descriptor back to its column name.
// Descriptors from a different codec (or a nil descriptor) fail with a
// FieldNotRegistered error.
func (c *Codec[R]) FindColumnName(f *Field) (string, error) {
	if f == nil || f.owner != interface{}(c) {
		return "", errors.New(errors.ErrorTypeFieldNotRegistered,
			"field is not registered in this codec")
	}
	return f.column, nil
}

// ReadAll materializes every row of the DataFrame into records. The
// output is pre-sized to the row count with zero-valued records; each
// registered field's reader then fills its column in registration
// order. Fields that were never registered keep their zero values.
func (c *Codec[R]) ReadAll(df *frame.DataFrame) ([]R, error) {
	out := make([]R, df.NumRows())
	for _, read := range c.readers {
		if err := read(df, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadSelected is ReadAll restricted to the named columns. Fields whose
// columns are not selected stay zero-valued; skipping a field's reader
// is exactly how projection works on the record side.
func (c *Codec[R]) ReadSelected(df *frame.DataFrame, columns []string) ([]R, error) {
	selected := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		selected[name] = struct{}{}
	}

	out := make([]R, df.NumRows())
	for i, read := range c.readers {
		if _, ok := selected[c.fields[i].column]; !ok {
			continue
		}
		if err := read(df, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteAll appends one column per registered field to the engine
// writer, gathering the field's value from every record.
func (c *Codec[R]) WriteAll(w *engine.Writer, recs []R) {
	for _, write := range c.writers {
		write(w, recs)
	}
}
