package dataflow

import (
	"errors"
	"fmt"
)

// Lattice is the value domain of an IDE problem. Meet must be commutative,
// associative and idempotent, and Top must absorb: Meet(x, Top()) == Top().
// Bottom is the neutral starting value.
type Lattice[V comparable] interface {
	Top() V
	Bottom() V
	Meet(a, b V) V
}

// ErrMeetLaw is wrapped by the errors returned from CheckMeetLaws.
var ErrMeetLaw = errors.New("meet law violated")

// CheckMeetLaws tests the meet laws on every pair and triple of samples and
// returns the violations found, joined.
func CheckMeetLaws[V comparable](l Lattice[V], samples ...V) error {
	var errs []error
	top := l.Top()
	for _, a := range samples {
		if got := l.Meet(a, a); got != a {
			errs = append(errs, fmt.Errorf("%w: meet(%v, %v) = %v, not idempotent", ErrMeetLaw, a, a, got))
		}
		if got := l.Meet(a, top); got != top {
			errs = append(errs, fmt.Errorf("%w: meet(%v, top) = %v, top not absorbing", ErrMeetLaw, a, got))
		}
		for _, b := range samples {
			ab, ba := l.Meet(a, b), l.Meet(b, a)
			if ab != ba {
				errs = append(errs, fmt.Errorf("%w: meet(%v, %v) = %v but meet(%v, %v) = %v", ErrMeetLaw, a, b, ab, b, a, ba))
			}
			for _, c := range samples {
				left, right := l.Meet(ab, c), l.Meet(a, l.Meet(b, c))
				if left != right {
					errs = append(errs, fmt.Errorf("%w: meet is not associative on (%v, %v, %v)", ErrMeetLaw, a, b, c))
				}
			}
		}
	}
	return errors.Join(errs...)
}
