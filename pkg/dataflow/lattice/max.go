// Package lattice provides value domains for IDE problems together with
// their edge functions.
package lattice

import (
	"math"

	"github.com/l3aro/go-dataflow/pkg/dataflow"
)

// Max is the lattice of int64 values ordered so that meet takes the
// maximum. Top is math.MaxInt64 and absorbs every value; Bottom is
// math.MinInt64. The lattice has finite height only because int64 is
// bounded: problems that increment values around loops should be solved
// with limits.
type Max struct{}

func (Max) Top() int64    { return math.MaxInt64 }
func (Max) Bottom() int64 { return math.MinInt64 }

func (Max) Meet(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// MaxAdd returns the edge function adding delta, saturating at Top and
// Bottom.
func MaxAdd(delta int64) dataflow.EdgeFunction[int64] {
	if delta == 0 {
		return dataflow.Identity[int64]{}
	}
	return dataflow.Func[int64](func(v int64) int64 {
		switch {
		case v == math.MaxInt64 || v == math.MinInt64:
			return v
		case delta > 0 && v > math.MaxInt64-delta:
			return math.MaxInt64
		case delta < 0 && v < math.MinInt64-delta:
			return math.MinInt64
		}
		return v + delta
	})
}

var _ dataflow.Lattice[int64] = Max{}
