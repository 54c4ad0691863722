package codec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basaltdata/basalt/pkg/engine"
	"github.com/basaltdata/basalt/pkg/errors"
)

func TestQueryCollectAll(t *testing.T) {
	path := writeUsers(t, sampleUsers)

	got, err := NewQuery(path, userCodec).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleUsers, got)
}

func TestQueryFilter(t *testing.T) {
	path := writeUsers(t, sampleUsers)

	got, err := NewQuery(path, userCodec).
		Filter(userScore, engine.Gt, 80.0).
		Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Name)
	assert.Equal(t, "charlie", got[1].Name)
}

// Projection and filtering compose: only the selected fields are
// materialized, even when the filter references another column.
func TestQuerySelectWithFilter(t *testing.T) {
	path := writeUsers(t, sampleUsers)

	got, err := NewQuery(path, userCodec).
		Select(userID, userScore).
		Filter(userScore, engine.Gt, 80.0).
		Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, 85.5, got[0].Score)
	assert.Equal(t, "", got[0].Name, "unselected field stays zero")
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, 91.0, got[1].Score)
}

// A filter on an unselected field still evaluates (the engine scans the
// filter column), but the field itself is not materialized.
func TestQueryFilterOnUnselectedField(t *testing.T) {
	path := writeUsers(t, sampleUsers)

	got, err := NewQuery(path, userCodec).
		Select(userID).
		Filter(userScore, engine.Gt, 80.0).
		Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Zero(t, got[0].Score)
	assert.Zero(t, got[1].Score)
}

func TestQuerySelectColumns(t *testing.T) {
	path := writeUsers(t, sampleUsers)

	got, err := NewQuery(path, userCodec).
		SelectColumns("name").
		Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "bob", got[1].Name)
	assert.Zero(t, got[1].ID)
}

func TestQueryFilterKinds(t *testing.T) {
	path := writeUsers(t, sampleUsers)

	tests := []struct {
		name    string
		field   *Field
		op      engine.FilterOp
		value   interface{}
		wantIDs []int64
	}{
		{"int64", userID, engine.Le, int64(2), []int64{1, 2}},
		{"int promotes", userID, engine.Le, 2, []int64{1, 2}},
		{"string", userName, engine.Eq, "bob", []int64{2}},
		{"bool", userActive, engine.Eq, true, []int64{1, 3}},
		{"time", userCreated, engine.Ge, time.UnixMilli(2000), []int64{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewQuery(path, userCodec).
				Filter(tt.field, tt.op, tt.value).
				Collect(context.Background())
			require.NoError(t, err)

			ids := make([]int64, 0, len(got))
			for _, u := range got {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestQueryFilterValueMismatch(t *testing.T) {
	path := writeUsers(t, sampleUsers)

	_, err := NewQuery(path, userCodec).
		Filter(userScore, engine.Gt, "eighty").
		Collect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

func TestQueryForeignField(t *testing.T) {
	_, err := NewQuery(writeUsers(t, sampleUsers), userCodec).
		Select(pingSeq).
		Collect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFieldNotRegistered))
}

func TestQueryReusable(t *testing.T) {
	path := writeUsers(t, sampleUsers)
	q := NewQuery(path, userCodec).Filter(userActive, engine.Eq, true)

	for i := 0; i < 2; i++ {
		got, err := q.Collect(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
}
