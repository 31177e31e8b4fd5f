package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/notargets/gomesh/utils"
)

// ValueFunc reduces a field row to the scalar used for thresholds and ranges.
type ValueFunc struct {
	name    string
	fn      func(row []float64) float64
	minCols int
}

var (
	Average = ValueFunc{name: "average", fn: func(row []float64) (s float64) {
		for _, v := range row {
			s += v
		}
		return s / float64(len(row))
	}}
	Magnitude = ValueFunc{name: "magnitude", fn: func(row []float64) (s float64) {
		for _, v := range row {
			s += v * v
		}
		return math.Sqrt(s)
	}}
)

// Column selects component i.
func Column(i int) ValueFunc {
	return ValueFunc{name: "column:" + strconv.Itoa(i), fn: func(row []float64) float64 { return row[i] }, minCols: i + 1}
}

// Custom wraps a caller supplied reduction.
func Custom(name string, fn func(row []float64) float64) ValueFunc {
	return ValueFunc{name: name, fn: fn}
}

func (v ValueFunc) Name() string { return v.name }

func (v ValueFunc) IsZero() bool { return v.fn == nil }

// MinCols is the fewest field components the reduction reads.
func (v ValueFunc) MinCols() int { return max(1, v.minCols) }

func (v ValueFunc) Apply(row []float64) float64 {
	return v.fn(row)
}

// ParseValueFunc accepts average, magnitude or column:N.
func ParseValueFunc(s string) (v ValueFunc, err error) {
	switch {
	case s == "" || s == Average.name:
		return Average, nil
	case s == Magnitude.name:
		return Magnitude, nil
	case strings.HasPrefix(s, "column:"):
		var i int
		if i, err = strconv.Atoi(strings.TrimPrefix(s, "column:")); err != nil || i < 0 {
			err = fmt.Errorf("%w: bad column in value function %q", utils.ErrValidation, s)
			return
		}
		return Column(i), nil
	}
	err = fmt.Errorf("%w: unknown value function %q", utils.ErrValidation, s)
	return
}

// UnitFunc maps [0,1] onto [0,1], used to space values over a range.
type UnitFunc struct {
	name string
	fn   func(x float64) float64
}

var (
	Linear   = UnitFunc{"linear", func(x float64) float64 { return x }}
	SineEase = UnitFunc{"sine", func(x float64) float64 { return 0.5 - 0.5*math.Cos(x*math.Pi) }}
)

func (u UnitFunc) Name() string { return u.name }

func (u UnitFunc) Apply(x float64) float64 {
	if u.fn == nil {
		return x
	}
	return u.fn(math.Max(0, math.Min(1, x)))
}

func ParseUnitFunc(s string) (u UnitFunc, err error) {
	switch s {
	case "", Linear.name:
		return Linear, nil
	case SineEase.name:
		return SineEase, nil
	}
	err = fmt.Errorf("%w: unknown unit function %q", utils.ErrValidation, s)
	return
}
