package order

import (
	"testing"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := newRegistry()
	for i := 0; i < 4; i++ {
		r.create(core.Order{Status: core.OrderStatusTypeActive})
	}
	require.Equal(t, core.OrderID(4), r.lastID())

	first, _ := r.get(1)
	second, _ := r.get(2)
	third, _ := r.get(3)
	first.MergedInto = 2
	second.MergedInto = 3
	third.MergedInto = 4

	order, err := r.resolve(1)
	require.NoError(t, err)
	assert.Equal(t, core.OrderID(4), order.ID)
	assert.Equal(t, core.OrderID(4), first.MergedInto)
	assert.Equal(t, core.OrderID(4), second.MergedInto)

	order, err = r.resolve(4)
	require.NoError(t, err)
	assert.Equal(t, core.OrderID(4), order.ID)

	_, err = r.resolve(5)
	assert.ErrorIs(t, err, core.ErrUnknownOrder)
	_, err = r.resolve(0)
	assert.ErrorIs(t, err, core.ErrUnknownOrder)
}

func TestRegistry_ResolveCycle(t *testing.T) {
	r := newRegistry()
	a := r.create(core.Order{})
	b := r.create(core.Order{})
	a.MergedInto = b.ID
	b.MergedInto = a.ID

	_, err := r.resolve(a.ID)
	assert.ErrorIs(t, err, core.ErrMergeChain)

	c := r.create(core.Order{MergedInto: 9})
	_, err = r.resolve(c.ID)
	assert.ErrorIs(t, err, core.ErrMergeChain)
}

func TestRegistry_Put(t *testing.T) {
	r := newRegistry()
	r.put(core.Order{ID: 3})
	r.put(core.Order{})

	assert.Equal(t, core.OrderID(3), r.lastID())
	_, ok := r.get(1)
	assert.False(t, ok)
	order, ok := r.get(3)
	require.True(t, ok)
	assert.Equal(t, core.OrderID(3), order.ID)
	assert.Equal(t, core.OrderID(4), r.create(core.Order{}).ID)
}
