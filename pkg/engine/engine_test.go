package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basaltdata/basalt/pkg/errors"
)

// writeSample writes a five-column file and returns its path.
func writeSample(t *testing.T, opts ...WriterOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.parquet")

	w := NewWriter(path, opts...)
	w.AddInt64Column("id", []int64{1, 2, 3, 4, 5})
	w.AddFloat64Column("score", []float64{9.5, 8.0, 7.25, 6.5, 10.0})
	w.AddStringColumn("name", []string{"alice", "bob", "", "dave", "éve"})
	w.AddBoolColumn("active", []bool{true, false, true, true, false})
	w.AddTimestampColumn("created", []int64{1000, 2000, 3000, 4000, 5000})
	require.NoError(t, w.Finish())

	return path
}

func flatten[T any](chunks [][]T) []T {
	var out []T
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func TestWriteOpenRoundTrip(t *testing.T) {
	path := writeSample(t)

	h, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, path, h.Path())
	assert.Equal(t, int64(5), h.NumRows())
	assert.Equal(t, int64(5), h.NumCols())

	infos := h.Columns()
	require.Len(t, infos, 5)
	assert.Equal(t, ColumnInfo{Name: "id", Type: "int64"}, infos[0])
	assert.Equal(t, ColumnInfo{Name: "score", Type: "float64"}, infos[1])
	assert.Equal(t, ColumnInfo{Name: "name", Type: "string"}, infos[2])
	assert.Equal(t, ColumnInfo{Name: "active", Type: "bool"}, infos[3])
	assert.Equal(t, ColumnInfo{Name: "created", Type: "timestamp"}, infos[4])

	ids, err := h.Int64Chunks("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, flatten(ids))

	scores, err := h.Float64Chunks("score")
	require.NoError(t, err)
	assert.Equal(t, []float64{9.5, 8.0, 7.25, 6.5, 10.0}, flatten(scores))

	names, err := h.StringColumn("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "", "dave", "éve"}, names)

	active, err := h.BoolColumn("active")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, true, false}, active)

	created, err := h.TimestampChunks("created")
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 2000, 3000, 4000, 5000}, flatten(created))
}

func TestNumericColumnTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numeric.parquet")
	w := NewWriter(path)
	w.AddInt32Column("i32", []int32{-1, 0, 1})
	w.AddUint64Column("u64", []uint64{0, 1, 1 << 40})
	w.AddFloat32Column("f32", []float32{1.5, -2.5, 0})
	require.NoError(t, w.Finish())

	h, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer h.Close()

	i32, err := h.Int32Chunks("i32")
	require.NoError(t, err)
	assert.Equal(t, []int32{-1, 0, 1}, flatten(i32))

	u64, err := h.Uint64Chunks("u64")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 1 << 40}, flatten(u64))

	f32, err := h.Float32Chunks("f32")
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2.5, 0}, flatten(f32))
}

func TestOpenNotFound(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.parquet"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestOpenProjected(t *testing.T) {
	path := writeSample(t)

	h, err := OpenProjected(context.Background(), path, []string{"id", "name"})
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, int64(5), h.NumRows())
	assert.Equal(t, int64(2), h.NumCols())

	// Columns outside the projection are gone.
	_, err = h.Float64Chunks("score")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnNotFound))
}

func TestOpenProjectedUnknownColumn(t *testing.T) {
	path := writeSample(t)

	_, err := OpenProjected(context.Background(), path, []string{"nope"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnNotFound))
}

func TestOpenProjectedEmpty(t *testing.T) {
	path := writeSample(t)

	_, err := OpenProjected(context.Background(), path, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestColumnTypeMismatch(t *testing.T) {
	path := writeSample(t)

	h, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Int64Chunks("score")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	_, err = h.StringColumn("id")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	_, err = h.BoolColumn("name")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

// Small row groups come back as multiple chunks per column; Rechunk
// compacts them into one.
func TestRowGroupsBecomeChunks(t *testing.T) {
	path := writeSample(t, WithRowGroupSize(2))

	h, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer h.Close()

	ids, err := h.Int64Chunks("id")
	require.NoError(t, err)
	assert.Greater(t, len(ids), 1, "2-row groups over 5 rows must yield multiple chunks")
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, flatten(ids))

	assert.True(t, h.Rechunk())

	ids, err = h.Int64Chunks("id")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids[0])

	// Already contiguous, nothing changes.
	assert.False(t, h.Rechunk())
}

func TestWriterNoColumns(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "empty.parquet"))
	err := w.Finish()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestWriterLengthMismatch(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "ragged.parquet"))
	w.AddInt64Column("a", []int64{1, 2, 3})
	w.AddInt64Column("b", []int64{1})
	err := w.Finish()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestWriterUnknownCompression(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "x.parquet"), WithCompression("lz77"))
	w.AddInt64Column("a", []int64{1})
	err := w.Finish()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestWriterCompressionCodecs(t *testing.T) {
	for _, name := range []string{"none", "snappy", "zstd", "gzip"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name+".parquet")
			w := NewWriter(path, WithCompression(name))
			w.AddInt64Column("a", []int64{1, 2, 3})
			require.NoError(t, w.Finish())

			h, err := Open(context.Background(), path)
			require.NoError(t, err)
			defer h.Close()
			assert.Equal(t, int64(3), h.NumRows())
		})
	}
}

func TestWriterFinishIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once.parquet")
	w := NewWriter(path)
	w.AddInt64Column("a", []int64{1})
	require.NoError(t, w.Finish())
	require.NoError(t, w.Finish())
}

func TestWriterDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discarded.parquet")
	w := NewWriter(path)
	w.AddInt64Column("a", []int64{1})
	assert.Equal(t, 1, w.NumColumns())

	w.Discard()
	assert.Equal(t, 0, w.NumColumns())

	// Discard marks the writer finished; Finish becomes a no-op.
	require.NoError(t, w.Finish())
	_, err := Open(context.Background(), path)
	require.Error(t, err)
}
