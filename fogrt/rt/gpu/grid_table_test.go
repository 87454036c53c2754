package gpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrid struct {
	id int
}

func TestGridTableRecyclesBySize(t *testing.T) {
	table := newGridTable[*fakeGrid]()
	created := 0
	create := func(GridDesc) (*fakeGrid, error) {
		created++
		return &fakeGrid{id: created}, nil
	}
	small := GridDesc{Width: 4, Height: 4, Depth: 16}
	large := GridDesc{Width: 8, Height: 8, Depth: 64}

	a, err := table.acquire(small, create)
	require.NoError(t, err)
	b, err := table.acquire(small, create)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotZero(t, a)
	assert.Equal(t, 2, created)

	ra, desc, ok := table.get(a)
	require.True(t, ok)
	assert.Equal(t, small, desc)

	assert.True(t, table.release(a))
	assert.False(t, table.release(a))
	assert.Equal(t, 1, table.liveCount())

	// A different size never reuses the pooled grid.
	_, err = table.acquire(large, create)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	c, err := table.acquire(small, create)
	require.NoError(t, err)
	rc, _, _ := table.get(c)
	assert.Same(t, ra, rc)
	assert.Equal(t, 3, created)
	assert.Zero(t, table.pooled())
}

func TestGridTableErrors(t *testing.T) {
	table := newGridTable[*fakeGrid]()
	boom := errors.New("boom")

	_, err := table.acquire(GridDesc{Width: 4, Height: 0, Depth: 4}, func(GridDesc) (*fakeGrid, error) {
		return &fakeGrid{}, nil
	})
	assert.ErrorIs(t, err, ErrEmptyGrid)

	_, err = table.acquire(GridDesc{Width: 1, Height: 1, Depth: 1}, func(GridDesc) (*fakeGrid, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, table.liveCount())

	_, _, ok := table.get(42)
	assert.False(t, ok)
}

func TestGridTableDrain(t *testing.T) {
	table := newGridTable[*fakeGrid]()
	create := func(GridDesc) (*fakeGrid, error) { return &fakeGrid{}, nil }
	d := GridDesc{Width: 2, Height: 2, Depth: 2}
	h1, _ := table.acquire(d, create)
	_, _ = table.acquire(d, create)
	table.release(h1)

	released := 0
	table.drain(func(*fakeGrid) { released++ })
	assert.Equal(t, 2, released)
	assert.Zero(t, table.liveCount())
	assert.Zero(t, table.pooled())
}
