// Package chunked provides zero-copy access to columnar data that
// physically lives in multiple non-contiguous chunks (one chunk per
// Parquet row group). A Column presents the chunks as one flat, typed
// sequence: O(log n) random access through a prefix-sum index and
// O(1)-amortized sequential access through a cross-chunk iterator.
//
// Columns do not own their chunk memory. Every chunk aliases buffers
// owned by the DataFrame that produced it, and becomes invalid the
// moment that DataFrame is closed. This is a caller contract, not
// something the type system enforces.
package chunked

import (
	"iter"
	"sort"

	"github.com/basaltdata/basalt/pkg/errors"
)

// Element is the set of fixed-width primitive types that can be exposed
// as zero-copy chunk views. Strings and booleans are deliberately
// excluded: string data is not fixed-width and boolean storage is
// bit-packed upstream, so both require allocating accessors.
type Element interface {
	~int32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// Chunk is an immutable, non-owning view of one contiguous run of
// same-typed elements.
type Chunk[T Element] struct {
	data []T
}

// NewChunk creates a chunk view over data. The slice is aliased, not
// copied.
func NewChunk[T Element](data []T) Chunk[T] {
	return Chunk[T]{data: data}
}

// Data returns the underlying slice.
func (c Chunk[T]) Data() []T { return c.data }

// Len returns the number of elements in the chunk.
func (c Chunk[T]) Len() int { return len(c.data) }

// Empty reports whether the chunk has no elements.
func (c Chunk[T]) Empty() bool { return len(c.data) == 0 }

// At returns the i-th element of the chunk. No bounds check beyond the
// runtime's.
func (c Chunk[T]) At(i int) T { return c.data[i] }

// Column is an ordered sequence of chunks with a prefix-sum index over
// their lengths. It is built once by appending chunks and is read-only
// afterwards.
type Column[T Element] struct {
	chunks  []Chunk[T]
	offsets []int // prefix sums for O(log n) index lookup
	total   int
}

// New creates an empty column.
func New[T Element]() *Column[T] {
	return &Column[T]{}
}

// AddChunk appends a chunk view over data. Zero-length chunks are
// silently dropped so the prefix-sum index never contains empty runs.
func (c *Column[T]) AddChunk(data []T) {
	if len(data) == 0 {
		return
	}
	c.chunks = append(c.chunks, NewChunk(data))
	c.total += len(data)
	c.offsets = append(c.offsets, c.total)
}

// Len returns the total number of elements across all chunks.
func (c *Column[T]) Len() int { return c.total }

// Empty reports whether the column has no elements.
func (c *Column[T]) Empty() bool { return c.total == 0 }

// Get returns the element at the global index i. The chunk is located
// by binary search over the prefix sums, so the cost is
// O(log(NumChunks())). There is no bounds check; indexing past Len()-1
// is a caller-contract violation and panics. Use At for checked access.
func (c *Column[T]) Get(i int) T {
	chunkIdx := sort.Search(len(c.offsets), func(k int) bool {
		return c.offsets[k] > i
	})
	offset := 0
	if chunkIdx > 0 {
		offset = c.offsets[chunkIdx-1]
	}
	return c.chunks[chunkIdx].At(i - offset)
}

// At returns the element at the global index i with bounds checking.
func (c *Column[T]) At(i int) (T, error) {
	if i < 0 || i >= c.total {
		var zero T
		return zero, errors.Newf(errors.ErrorTypeOutOfRange,
			"index %d out of range for column of length %d", i, c.total)
	}
	return c.Get(i), nil
}

// NumChunks returns the number of non-empty chunks. This usually equals
// the number of row groups in the source file.
func (c *Column[T]) NumChunks() int { return len(c.chunks) }

// Chunk returns the i-th chunk. Chunk-level access lets callers iterate
// several same-shaped columns chunk by chunk instead of paying the
// binary-search lookup per element.
func (c *Column[T]) Chunk(i int) Chunk[T] { return c.chunks[i] }

// Chunks returns all chunks in order.
func (c *Column[T]) Chunks() []Chunk[T] { return c.chunks }

// Begin returns an iterator positioned at the first element.
func (c *Column[T]) Begin() Iterator[T] {
	return newIterator(c, 0, 0)
}

// End returns the one-past-last iterator position.
func (c *Column[T]) End() Iterator[T] {
	return Iterator[T]{col: c, chunkIdx: len(c.chunks)}
}

// Values returns a sequence over every element in chunk order, for use
// with range-over-func loops.
func (c *Column[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, ch := range c.chunks {
			for _, v := range ch.data {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Iterator walks a column across chunk boundaries, presenting the
// chunks as one flat sequence. Iterators from different columns must
// never be compared.
type Iterator[T Element] struct {
	col      *Column[T]
	chunkIdx int
	elemIdx  int
}

// newIterator positions an iterator and skips any empty chunks. AddChunk
// already filters empties, so the skip only matters when chunks are
// injected by other means, but the traversal guarantee must not depend
// on that invariant holding.
func newIterator[T Element](col *Column[T], chunkIdx, elemIdx int) Iterator[T] {
	it := Iterator[T]{col: col, chunkIdx: chunkIdx, elemIdx: elemIdx}
	it.skipEmptyChunks()
	return it
}

func (it *Iterator[T]) skipEmptyChunks() {
	for it.chunkIdx < len(it.col.chunks) && it.col.chunks[it.chunkIdx].Len() == 0 {
		it.chunkIdx++
	}
}

// Done reports whether the iterator is past the last element.
func (it Iterator[T]) Done() bool {
	return it.chunkIdx >= len(it.col.chunks)
}

// Value returns the element at the current position.
func (it Iterator[T]) Value() T {
	return it.col.chunks[it.chunkIdx].At(it.elemIdx)
}

// Next advances the iterator by one element, crossing into the next
// non-empty chunk when the current one is exhausted.
func (it *Iterator[T]) Next() {
	it.elemIdx++
	if it.elemIdx >= it.col.chunks[it.chunkIdx].Len() {
		it.chunkIdx++
		it.elemIdx = 0
		it.skipEmptyChunks()
	}
}

// Pos returns the (chunk, element) position of the iterator.
func (it Iterator[T]) Pos() (int, int) {
	return it.chunkIdx, it.elemIdx
}

// Equal reports whether two iterators are at the same position.
func (it Iterator[T]) Equal(other Iterator[T]) bool {
	return it.chunkIdx == other.chunkIdx && it.elemIdx == other.elemIdx
}
