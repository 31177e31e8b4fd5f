package utils

import (
	"context"
	"fmt"
	"sort"
)

// Split divides the element range [0, Size) into Parts contiguous ranges.
// Range sizes differ by at most one, the larger ranges first.
type Split struct {
	Size   int
	Parts  int
	bounds []int // len Parts+1, bounds[n] is the first element of range n
}

func NewSplit(parts, size int) (s *Split) {
	if parts < 1 {
		parts = 1
	}
	if size < 0 {
		panic(fmt.Sprintf("negative split size %d", size))
	}
	var (
		base  = size / parts
		extra = size % parts
	)
	s = &Split{Size: size, Parts: parts, bounds: make([]int, parts+1)}
	for n := 0; n < parts; n++ {
		width := base
		if n < extra {
			width++
		}
		s.bounds[n+1] = s.bounds[n] + width
	}
	return
}

// Range returns the half open element range of part n.
func (s *Split) Range(n int) (start, end int) {
	return s.bounds[n], s.bounds[n+1]
}

// Len is the element count of part n, or Size for n == -1.
func (s *Split) Len(n int) int {
	if n == -1 {
		return s.Size
	}
	start, end := s.Range(n)
	return end - start
}

// Owner returns the part holding element k, or -1 when k is out of range.
func (s *Split) Owner(k int) int {
	if k < 0 || k >= s.Size {
		return -1
	}
	// first part whose end lies past k; empty trailing parts never match
	return sort.Search(s.Parts, func(n int) bool { return s.bounds[n+1] > k })
}

type envelope struct {
	from    int
	payload any
}

// Exchange is a single round all-to-all mailbox. Each participant posts one
// payload to every peer, then collects one from each of them.
type Exchange struct {
	size  int
	inbox []chan envelope
}

func NewExchange(size int) *Exchange {
	ex := &Exchange{size: size, inbox: make([]chan envelope, size)}
	for n := range ex.inbox {
		// room for one payload per peer, so posting never blocks
		ex.inbox[n] = make(chan envelope, size)
	}
	return ex
}

// PostToAll delivers payload from participant "from" to every other inbox.
func (ex *Exchange) PostToAll(from int, payload any) {
	for to, box := range ex.inbox {
		if to == from {
			continue
		}
		box <- envelope{from: from, payload: payload}
	}
}

// Receive waits for the payloads of all peers of participant "me". The result
// is indexed by participant, with own stored at me.
func (ex *Exchange) Receive(ctx context.Context, me int, own any) (all []any, err error) {
	all = make([]any, ex.size)
	all[me] = own
	for pending := ex.size - 1; pending > 0; pending-- {
		select {
		case env := <-ex.inbox[me]:
			if env.from < 0 || env.from >= ex.size || env.from == me {
				panic(fmt.Sprintf("exchange: bad sender %d for participant %d", env.from, me))
			}
			all[env.from] = env.payload
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return
}
