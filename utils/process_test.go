package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseProcCount(t *testing.T) {
	assert.Equal(t, 1, ChooseProcCount(10, 0, 100, 8))
	assert.Equal(t, 1, ChooseProcCount(50, 1, 101, 8)) // 100 units of work
	assert.Equal(t, 8, ChooseProcCount(50, 1, 100, 8))
	assert.Equal(t, 3, ChooseProcCount(3, 100, 10, 8))
	assert.Equal(t, 1, ChooseProcCount(0, 0, 0, 8))
	assert.GreaterOrEqual(t, ChooseProcCount(1000, 0, 0, 0), 1)
}

func TestRunProcesses(t *testing.T) {
	{ // Test ranges cover the input exactly once, in order
		for _, np := range []int{1, 2, 3, 7} {
			var progress Progress
			res, err := RunProcesses(context.Background(), np, 20, &progress,
				func(p *Process) ([]int, error) {
					var out []int
					for i := p.Start; i < p.End; i++ {
						out = append(out, i)
						p.Step(1)
					}
					return out, nil
				})
			require.NoError(t, err)
			require.Len(t, res, np)
			var all []int
			for _, r := range res {
				all = append(all, r...)
			}
			assert.Len(t, all, 20)
			for i, v := range all {
				assert.Equal(t, i, v)
			}
			assert.Equal(t, 20, progress.Done())
		}
	}
	{ // Test the shared exchange agrees on a global range
		data := []float64{3, -2, 8, 5, 0, 11, -7, 4, 9}
		res, err := RunProcesses(context.Background(), 4, len(data), nil,
			func(p *Process) ([2]float64, error) {
				lo, hi := 1e300, -1e300
				for i := p.Start; i < p.End; i++ {
					lo, hi = min(lo, data[i]), max(hi, data[i])
				}
				objs, err := p.Share([2]float64{lo, hi})
				if err != nil {
					return [2]float64{}, err
				}
				for _, o := range objs {
					r := o.([2]float64)
					lo, hi = min(lo, r[0]), max(hi, r[1])
				}
				if _, err = p.Share(nil); !errors.Is(err, ErrExchangeUsed) {
					return [2]float64{}, fmt.Errorf("second share allowed")
				}
				return [2]float64{lo, hi}, nil
			})
		require.NoError(t, err)
		for _, r := range res {
			assert.Equal(t, [2]float64{-7, 11}, r)
		}
	}
	{ // Test the first failure by index wins and blocked peers are released
		boom := errors.New("boom")
		res, err := RunProcesses(context.Background(), 4, 8, nil,
			func(p *Process) (int, error) {
				switch p.Index {
				case 2:
					return 0, boom
				case 3:
					panic("worse")
				}
				_, err := p.Share(p.Index) // never completes, process 2 does not share
				return p.Index, err
			})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
		var we *WorkerError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, 2, we.Index)
	}
	{ // Test a panicking worker is reported as an error
		_, err := RunProcesses(context.Background(), 2, 2, nil,
			func(p *Process) (int, error) {
				if p.Index == 1 {
					panic("bad element")
				}
				return 0, nil
			})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad element")
	}
}
