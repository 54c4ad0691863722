package engine

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// The typed chunk getters below expose raw value buffers, one slice per
// row-group chunk, without copying. There is deliberately one getter
// per supported primitive type and no type-erased fallback: a caller
// asking for the wrong type gets a TypeMismatch error, never a silent
// coercion.
//
// Null slots are not masked out on the zero-copy paths; the raw buffer
// is returned as stored. Basalt expects required (non-nullable) columns,
// which is what its own writer produces.

// Int64Chunks returns the raw chunk buffers of an int64 column.
func (h *Handle) Int64Chunks(name string) ([][]int64, error) {
	col, err := h.typedColumn(name, arrow.INT64, "int64")
	if err != nil {
		return nil, err
	}
	chunks := col.Data().Chunks()
	out := make([][]int64, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.(*array.Int64).Int64Values())
	}
	return out, nil
}

// Int32Chunks returns the raw chunk buffers of an int32 column.
func (h *Handle) Int32Chunks(name string) ([][]int32, error) {
	col, err := h.typedColumn(name, arrow.INT32, "int32")
	if err != nil {
		return nil, err
	}
	chunks := col.Data().Chunks()
	out := make([][]int32, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.(*array.Int32).Int32Values())
	}
	return out, nil
}

// Uint64Chunks returns the raw chunk buffers of a uint64 column.
func (h *Handle) Uint64Chunks(name string) ([][]uint64, error) {
	col, err := h.typedColumn(name, arrow.UINT64, "uint64")
	if err != nil {
		return nil, err
	}
	chunks := col.Data().Chunks()
	out := make([][]uint64, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.(*array.Uint64).Uint64Values())
	}
	return out, nil
}

// Float64Chunks returns the raw chunk buffers of a float64 column.
func (h *Handle) Float64Chunks(name string) ([][]float64, error) {
	col, err := h.typedColumn(name, arrow.FLOAT64, "float64")
	if err != nil {
		return nil, err
	}
	chunks := col.Data().Chunks()
	out := make([][]float64, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.(*array.Float64).Float64Values())
	}
	return out, nil
}

// Float32Chunks returns the raw chunk buffers of a float32 column.
func (h *Handle) Float32Chunks(name string) ([][]float32, error) {
	col, err := h.typedColumn(name, arrow.FLOAT32, "float32")
	if err != nil {
		return nil, err
	}
	chunks := col.Data().Chunks()
	out := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.(*array.Float32).Float32Values())
	}
	return out, nil
}

// TimestampChunks returns the raw chunk buffers of a timestamp column
// as epoch milliseconds.
func (h *Handle) TimestampChunks(name string) ([][]int64, error) {
	col, err := h.typedColumn(name, arrow.TIMESTAMP, "timestamp")
	if err != nil {
		return nil, err
	}
	chunks := col.Data().Chunks()
	out := make([][]int64, 0, len(chunks))
	for _, c := range chunks {
		values := c.(*array.Timestamp).TimestampValues()
		out = append(out, timestampsAsInt64(values))
	}
	return out, nil
}

// timestampsAsInt64 reinterprets a timestamp buffer as int64 without
// copying. arrow.Timestamp is defined as int64, so the layouts match.
func timestampsAsInt64(values []arrow.Timestamp) []int64 {
	if len(values) == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&values[0])), len(values))
}

// StringColumn materializes a string column. String data is not
// fixed-width, so this path always allocates. Null slots become "".
func (h *Handle) StringColumn(name string) ([]string, error) {
	col, err := h.typedColumn(name, arrow.STRING, "string")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, col.Len())
	for _, c := range col.Data().Chunks() {
		arr := c.(*array.String)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				out = append(out, "")
				continue
			}
			out = append(out, arr.Value(i))
		}
	}
	return out, nil
}

// BoolColumn materializes a boolean column. Boolean storage is
// bit-packed upstream and cannot be viewed as fixed-width elements, so
// this path always allocates. Null slots become false.
func (h *Handle) BoolColumn(name string) ([]bool, error) {
	col, err := h.typedColumn(name, arrow.BOOL, "bool")
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, col.Len())
	for _, c := range col.Data().Chunks() {
		arr := c.(*array.Boolean)
		for i := 0; i < arr.Len(); i++ {
			out = append(out, !arr.IsNull(i) && arr.Value(i))
		}
	}
	return out, nil
}
