package lattice

import (
	"fmt"
	"strconv"

	"github.com/l3aro/go-dataflow/pkg/dataflow"
)

// ConstKind distinguishes the three levels of the constant lattice.
type ConstKind uint8

const (
	// Undefined is the bottom: no value has reached the fact yet.
	Undefined ConstKind = iota
	// Known holds a single constant.
	Known
	// Unknown is the top: the fact takes more than one value.
	Unknown
)

// ConstValue is an element of the constant propagation lattice.
type ConstValue struct {
	Kind ConstKind `json:"kind" msgpack:"kind"`
	N    int64     `json:"n,omitempty" msgpack:"n,omitempty"`
}

// Of returns the lattice element for the constant n.
func Of(n int64) ConstValue { return ConstValue{Kind: Known, N: n} }

// Int returns the constant and whether the value is one.
func (v ConstValue) Int() (int64, bool) { return v.N, v.Kind == Known }

func (v ConstValue) String() string {
	switch v.Kind {
	case Undefined:
		return "undefined"
	case Known:
		return strconv.FormatInt(v.N, 10)
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("ConstKind(%d)", v.Kind)
	}
}

// Const is the constant propagation lattice of height three.
type Const struct{}

func (Const) Top() ConstValue    { return ConstValue{Kind: Unknown} }
func (Const) Bottom() ConstValue { return ConstValue{Kind: Undefined} }

func (Const) Meet(a, b ConstValue) ConstValue {
	switch {
	case a == b:
		return a
	case a.Kind == Undefined:
		return b
	case b.Kind == Undefined:
		return a
	default:
		return ConstValue{Kind: Unknown}
	}
}

// ConstSet returns the edge function assigning n.
func ConstSet(n int64) dataflow.EdgeFunction[ConstValue] {
	return dataflow.Constant[ConstValue]{Value: Of(n)}
}

// ConstAdd returns the edge function adding delta to a known constant.
// Undefined and Unknown pass through.
func ConstAdd(delta int64) dataflow.EdgeFunction[ConstValue] {
	if delta == 0 {
		return dataflow.Identity[ConstValue]{}
	}
	return dataflow.Func[ConstValue](func(v ConstValue) ConstValue {
		if v.Kind != Known {
			return v
		}
		return Of(v.N + delta)
	})
}

// ConstMul returns the edge function multiplying a known constant by factor.
// Multiplying by zero yields the constant 0 even for Unknown.
func ConstMul(factor int64) dataflow.EdgeFunction[ConstValue] {
	switch factor {
	case 0:
		return ConstSet(0)
	case 1:
		return dataflow.Identity[ConstValue]{}
	}
	return dataflow.Func[ConstValue](func(v ConstValue) ConstValue {
		if v.Kind != Known {
			return v
		}
		return Of(v.N * factor)
	})
}

var _ dataflow.Lattice[ConstValue] = Const{}
