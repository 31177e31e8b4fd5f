package utils

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	sizes := func(parts, size int) (lens []int) {
		sp := NewSplit(parts, size)
		for n := 0; n < sp.Parts; n++ {
			lens = append(lens, sp.Len(n))
		}
		return
	}
	assert.Equal(t, []int{1, 1, 0, 0}, sizes(4, 2))
	assert.Equal(t, []int{3, 3, 2}, sizes(3, 8))
	assert.Equal(t, []int{5}, sizes(0, 5))
	{ // Test ranges tile the elements with an imbalance of at most one
		for size := 0; size < 300; size++ {
			sp := NewSplit(7, size)
			var (
				next       int
				lo, hi     = size, 0
				start, end int
			)
			for n := 0; n < sp.Parts; n++ {
				start, end = sp.Range(n)
				assert.Equal(t, next, start)
				next = end
				lo, hi = min(lo, end-start), max(hi, end-start)
			}
			assert.Equal(t, size, next)
			assert.LessOrEqual(t, hi-lo, 1)
			assert.Equal(t, size, sp.Len(-1))
		}
	}
	{ // Test Owner inverts Range
		for size := 1; size < 200; size++ {
			sp := NewSplit(5, size)
			for k := 0; k < size; k++ {
				n := sp.Owner(k)
				start, end := sp.Range(n)
				assert.True(t, start <= k && k < end)
			}
		}
		sp := NewSplit(4, 10)
		assert.Equal(t, -1, sp.Owner(10))
		assert.Equal(t, -1, sp.Owner(-1))
	}
	assert.Panics(t, func() { NewSplit(2, -1) })
}

func TestExchange(t *testing.T) {
	var (
		size = 5
		ex   = NewExchange(size)
		wg   sync.WaitGroup
		got  = make([][]any, size)
	)
	for n := 0; n < size; n++ {
		wg.Add(1)
		go func(me int) {
			defer wg.Done()
			ex.PostToAll(me, me*10)
			all, err := ex.Receive(context.Background(), me, me*10)
			assert.NoError(t, err)
			got[me] = all
		}(n)
	}
	wg.Wait()
	for n := 0; n < size; n++ {
		assert.Equal(t, []any{0, 10, 20, 30, 40}, got[n])
	}
	{ // Test a missing peer aborts on cancellation
		ex = NewExchange(2)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ex.Receive(ctx, 0, nil)
		assert.ErrorIs(t, err, context.Canceled)
	}
}
