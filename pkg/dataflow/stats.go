package dataflow

import (
	"fmt"
	"time"
)

// Limits bounds the work of a solve. Zero fields are unlimited.
type Limits struct {
	// MaxIterations caps the number of worklist items processed.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// MaxPathEdges caps the number of distinct path edges recorded.
	MaxPathEdges int `json:"max_path_edges" yaml:"max_path_edges"`
}

// Unlimited reports whether no bound is set.
func (l Limits) Unlimited() bool {
	return l.MaxIterations <= 0 && l.MaxPathEdges <= 0
}

// Config configures a bounded IDE solve.
type Config struct {
	Limits

	// VerifyMeet checks the meet laws over the distinct values seen during
	// the solve and logs violations. Intended for debugging new lattices.
	VerifyMeet bool `json:"verify_meet" yaml:"verify_meet"`
}

// Truncation reasons reported in Statistics.
const (
	ReasonMaxIterations = "max_iterations"
	ReasonMaxPathEdges  = "max_path_edges"
)

// Statistics describes a finished solve.
type Statistics struct {
	Iterations    int `json:"iterations"`
	PathEdges     int `json:"path_edges"`
	SummaryEdges  int `json:"summary_edges"`
	SummaryReuses int `json:"summary_reuses"`

	// IDE only.
	Values           int `json:"values,omitempty"`
	MicroCacheHits   int `json:"micro_cache_hits,omitempty"`
	MicroCacheMisses int `json:"micro_cache_misses,omitempty"`
	JumpFunctions    int `json:"jump_functions,omitempty"`
	JumpCacheHits    int `json:"jump_cache_hits,omitempty"`
	JumpCacheMisses  int `json:"jump_cache_misses,omitempty"`

	Duration time.Duration `json:"duration_ns"`

	// Truncated is set when a limit stopped the solve before the fixed
	// point; the tables then hold only the facts found so far.
	Truncated        bool   `json:"truncated"`
	TruncationReason string `json:"truncation_reason,omitempty"`
}

func (s Statistics) String() string {
	out := fmt.Sprintf("iterations=%d path_edges=%d summary_edges=%d summary_reuses=%d",
		s.Iterations, s.PathEdges, s.SummaryEdges, s.SummaryReuses)
	if s.Values > 0 {
		out += fmt.Sprintf(" values=%d micro_hits=%d micro_misses=%d jump_functions=%d jump_hits=%d jump_misses=%d",
			s.Values, s.MicroCacheHits, s.MicroCacheMisses, s.JumpFunctions, s.JumpCacheHits, s.JumpCacheMisses)
	}
	out += fmt.Sprintf(" duration=%s", s.Duration)
	if s.Truncated {
		out += " truncated=" + s.TruncationReason
	}
	return out
}
