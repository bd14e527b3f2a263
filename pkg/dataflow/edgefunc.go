package dataflow

// EdgeFunction transforms the value of a fact across one edge.
type EdgeFunction[V any] interface {
	Apply(v V) V
	// ComposeWith returns the function applying the receiver, then next.
	ComposeWith(next EdgeFunction[V]) EdgeFunction[V]
}

// Identity passes values through unchanged.
type Identity[V any] struct{}

func (Identity[V]) Apply(v V) V { return v }

func (Identity[V]) ComposeWith(next EdgeFunction[V]) EdgeFunction[V] {
	if next == nil {
		return Identity[V]{}
	}
	return next
}

// Constant maps every input to Value.
type Constant[V any] struct {
	Value V
}

func (c Constant[V]) Apply(V) V { return c.Value }

func (c Constant[V]) ComposeWith(next EdgeFunction[V]) EdgeFunction[V] {
	if next == nil {
		return c
	}
	return Constant[V]{Value: next.Apply(c.Value)}
}

// AllTop maps every input to the lattice top. It is the edge function of
// facts whose value is unknown.
func AllTop[V comparable](l Lattice[V]) EdgeFunction[V] {
	return Constant[V]{Value: l.Top()}
}

// Func adapts a plain function to an EdgeFunction.
type Func[V any] func(V) V

func (f Func[V]) Apply(v V) V { return f(v) }

func (f Func[V]) ComposeWith(next EdgeFunction[V]) EdgeFunction[V] {
	return Compose[V](f, next)
}

type composed[V any] struct {
	fns []EdgeFunction[V]
}

func (c composed[V]) Apply(v V) V {
	for _, f := range c.fns {
		v = f.Apply(v)
	}
	return v
}

func (c composed[V]) ComposeWith(next EdgeFunction[V]) EdgeFunction[V] {
	return Compose[V](c, next)
}

// Compose returns the function applying fns left to right. Nil functions
// and identities are dropped; composing nothing yields Identity.
func Compose[V any](fns ...EdgeFunction[V]) EdgeFunction[V] {
	var flat []EdgeFunction[V]
	for _, f := range fns {
		switch f := f.(type) {
		case nil:
		case Identity[V]:
		case composed[V]:
			flat = append(flat, f.fns...)
		default:
			flat = append(flat, f)
		}
	}
	switch len(flat) {
	case 0:
		return Identity[V]{}
	case 1:
		return flat[0]
	}
	return composed[V]{fns: flat}
}
