package icfg

import "errors"

var (
	// ErrUnknownEdgeKind is returned when an edge kind cannot be parsed.
	ErrUnknownEdgeKind = errors.New("unknown edge kind")

	// ErrUnknownCallee is returned by Link when a call names a procedure
	// that was not supplied.
	ErrUnknownCallee = errors.New("unknown callee")

	// ErrDuplicateProcedure is returned by Link when two procedures share a name.
	ErrDuplicateProcedure = errors.New("duplicate procedure")
)
