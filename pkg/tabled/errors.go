package tabled

import "errors"

var (
	// ErrUnknownOp is returned for an edge function op that is not one of
	// id, const, add, mul or top.
	ErrUnknownOp = errors.New("unknown op")

	// ErrUnknownNode is returned when a seed names a node missing from the
	// graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoSuchEdge is returned when a rule targets an edge missing from
	// the graph.
	ErrNoSuchEdge = errors.New("no such edge")

	// ErrMissingCallSite is returned for a return edge without call_site.
	ErrMissingCallSite = errors.New("return edge without call_site")

	// ErrReservedFact is returned when a document uses ZeroFact by name.
	ErrReservedFact = errors.New("reserved fact name")
)
