package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeColumnNotFound, "column missing")

	assert.Equal(t, ErrorTypeColumnNotFound, err.Type)
	assert.Equal(t, "column_not_found: column missing", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeOutOfRange, "index %d out of range", 42)
	assert.Equal(t, "out_of_range: index 42 out of range", err.Error())
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := Wrap(cause, ErrorTypeIO, "read failed")

	assert.Equal(t, ErrorTypeIO, err.Type)
	assert.Equal(t, "io: read failed: disk gone", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "nothing"))
}

// Wrapping one of our own errors keeps the original stack.
func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeValidation, "bad input")
	outer := Wrap(inner, ErrorTypeInternal, "operation failed")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeInternal))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeTypeMismatch, "wanted int64")

	assert.True(t, IsType(err, ErrorTypeTypeMismatch))
	assert.False(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeTypeMismatch))
	assert.False(t, IsType(nil, ErrorTypeTypeMismatch))
}

// IsType sees through standard wrapping.
func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("context: %w", New(ErrorTypeQuery, "bad predicate"))
	assert.True(t, IsType(err, ErrorTypeQuery))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeNotFound, "file missing").
		WithDetail("path", "/tmp/x.parquet").
		WithDetail("attempts", 3)

	require.NotNil(t, err.Details)
	assert.Equal(t, "/tmp/x.parquet", err.Details["path"])
	assert.Equal(t, 3, err.Details["attempts"])
}
