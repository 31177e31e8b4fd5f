package utils

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Progress is an additive counter shared by all processes of a run.
type Progress struct {
	done  atomic.Int64
	total atomic.Int64
}

func (p *Progress) Add(n int) {
	if p != nil {
		p.done.Add(int64(n))
	}
}

func (p *Progress) AddTotal(n int) {
	if p != nil {
		p.total.Add(int64(n))
	}
}

func (p *Progress) Done() int  { return int(p.done.Load()) }
func (p *Progress) Total() int { return int(p.total.Load()) }

// Process is one worker of a parallel run, owning the index range [Start, End).
type Process struct {
	Index, Total int
	Start, End   int
	progress     *Progress
	exchange     *Exchange
	shared       bool
	ctx          context.Context
}

func (p *Process) Len() int { return p.End - p.Start }

// Step reports n more items completed.
func (p *Process) Step(n int) { p.progress.Add(n) }

// Share posts obj to every peer and waits for theirs. The result is indexed
// by process and includes obj itself. Every process of the run must call
// Share exactly once, or none may.
func (p *Process) Share(obj any) ([]any, error) {
	if p.shared {
		return nil, fmt.Errorf("%w: process %d", ErrExchangeUsed, p.Index)
	}
	p.shared = true
	if p.Total == 1 {
		return []any{obj}, nil
	}
	p.exchange.PostToAll(p.Index, obj)
	return p.exchange.Receive(p.ctx, p.Index, obj)
}

// ChooseProcCount returns 1 when the work of numElems elements at the given
// refinement is below threshold, otherwise min(numElems, maxProcs).
// maxProcs <= 0 means runtime.NumCPU.
func ChooseProcCount(numElems, refine, threshold, maxProcs int) int {
	if maxProcs <= 0 {
		maxProcs = runtime.NumCPU()
	}
	if numElems*(refine+1) < threshold || numElems <= 1 {
		return 1
	}
	return min(numElems, maxProcs)
}

// RunProcesses splits [0, size) over numProcs workers and calls fn for each,
// concurrently. Results are returned in process order. On failure the first
// error in process order is returned, not counting cancellations caused by
// it, and all results are discarded.
func RunProcesses[R any](ctx context.Context, numProcs, size int, progress *Progress,
	fn func(p *Process) (R, error)) (results []R, err error) {
	var (
		sp   = NewSplit(numProcs, size)
		np   = sp.Parts
		errs = make([]error, np)
		ex   = NewExchange(np)
	)
	results = make([]R, np)
	g, gctx := errgroup.WithContext(ctx)
	for n := 0; n < np; n++ {
		start, end := sp.Range(n)
		p := &Process{
			Index:    n,
			Total:    np,
			Start:    start,
			End:      end,
			progress: progress,
			exchange: ex,
			ctx:      gctx,
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &WorkerError{Index: n, cause: fmt.Errorf("panic: %v", r)}
					errs[n] = err
				}
			}()
			var res R
			if res, err = fn(p); err != nil {
				err = &WorkerError{Index: n, cause: err}
				errs[n] = err
				return
			}
			results[n] = res
			return
		})
	}
	if err = g.Wait(); err == nil {
		return
	}
	results = nil
	err = firstError(ctx, errs)
	return
}

func firstError(ctx context.Context, errs []error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			// a sibling failed and cancelled the run
			if fallback == nil {
				fallback = err
			}
			continue
		}
		return err
	}
	return fallback
}
