package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorIndexSearchOrdersByInnerProduct(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryVectorIndex()

	require.NoError(t, m.Add(ctx, [][]float32{
		{1, 0},
		{0, 1},
		{0.6, 0.8},
	}))

	got, err := m.Search(ctx, []float32{0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestMemoryVectorIndexSearchEmpty(t *testing.T) {
	got, err := NewMemoryVectorIndex().Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryVectorIndexRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryVectorIndex()

	require.NoError(t, m.Add(ctx, [][]float32{{1, 0}}))
	assert.Error(t, m.Add(ctx, [][]float32{{1, 0, 0}}))
}

func TestMemoryVectorIndexRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryVectorIndex()

	rows, err := m.Rows(ctx)
	require.NoError(t, err)
	assert.Zero(t, rows)

	require.NoError(t, m.Add(ctx, [][]float32{{1, 0}, {0, 1}}))
	rows, err = m.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}
