// Package dataflow implements interprocedural dataflow tabulation over an
// icfg.Graph.
//
// Two solvers are provided. IFDSSolver computes which facts reach which
// nodes, and in which calling context, using the Reps-Horwitz-Sagiv
// tabulation algorithm with summary edges. IDESolver additionally propagates
// a lattice value along every reachable (node, fact) pair, applying the edge
// functions supplied by the problem and memoizing their results.
//
// Concrete analyses (taint tracking, effect inference, constant propagation)
// implement IFDSProblem or IDEProblem; the solvers themselves carry no
// analysis-specific logic. A solver instance is single-threaded and owns all
// of its tables, so independent problems can be solved concurrently by
// constructing one solver per problem.
//
// The engine reports no errors: facts that are never reached are simply
// absent from the result. Termination requires a finite fact domain and,
// for IDE, a lattice of finite height; SolveWithLimits and SolveWithConfig
// bound the work for inputs that do not meet these preconditions.
package dataflow
