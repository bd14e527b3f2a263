package dataflow

// Seed is an initial fact holding at an entry node.
type Seed[F comparable] struct {
	Node string
	Fact F
}

// ValueSeed is an initial fact with its starting value.
type ValueSeed[F, V comparable] struct {
	Node  string
	Fact  F
	Value V
}

// FlowFunctions are the four flow functions shared by IFDS and IDE problems.
// Each returns the facts holding after the edge given one fact before it: an
// empty result kills the fact, extra facts are generated.
type FlowFunctions[F comparable] interface {
	// ZeroFact returns the fact that holds unconditionally. It is the
	// source context of every seed.
	ZeroFact() F

	NormalFlow(from, to string, fact F) []F
	CallFlow(callSite, calleeEntry string, fact F) []F
	ReturnFlow(calleeExit, returnSite, callSite string, fact F) []F
	CallToReturnFlow(callSite, returnSite string, fact F) []F
}

// IFDSProblem is a fact reachability problem.
type IFDSProblem[F comparable] interface {
	FlowFunctions[F]
	InitialSeeds() []Seed[F]
}

// EdgeFunctions build the value transformer attached to a (source fact,
// target fact) pair of an edge. They must be pure: the solvers cache both
// the returned functions and their results.
type EdgeFunctions[F, V comparable] interface {
	NormalEdgeFunction(from, to string, source, target F) EdgeFunction[V]
	CallEdgeFunction(callSite, calleeEntry string, source, target F) EdgeFunction[V]
	ReturnEdgeFunction(calleeExit, returnSite, callSite string, source, target F) EdgeFunction[V]
	CallToReturnEdgeFunction(callSite, returnSite string, source, target F) EdgeFunction[V]
}

// IDEProblem is a value propagation problem over the lattice it returns.
// Edge functions must be monotone and the lattice must have finite height
// for Solve to terminate.
type IDEProblem[F, V comparable] interface {
	FlowFunctions[F]
	EdgeFunctions[F, V]
	Lattice() Lattice[V]
	InitialValueSeeds() []ValueSeed[F, V]
}
