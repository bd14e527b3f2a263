package commands

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/l3aro/go-dataflow/pkg/cache"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/dataflow/lattice"
	"github.com/l3aro/go-dataflow/pkg/dfg"
	"github.com/l3aro/go-dataflow/pkg/report"
	"github.com/l3aro/go-dataflow/pkg/tabled"
)

// Analyses accepted by solveFile.
const (
	modeIFDS   = "ifds"
	modeIDE    = "ide"
	modeGraph  = "graph"
	modeDefUse = "defuse"
)

// solveFile loads the problem at path and runs the analysis named by mode.
// The returned report is one of *report.IFDSReport, *report.IDEReport,
// *report.GraphReport or *report.DefUseReport.
func solveFile(s *settings, mode, path string) (any, error) {
	doc, err := tabled.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	if mode == modeDefUse {
		r, err := dfg.NewReachingDefs(doc.Procedures)
		if err != nil {
			return nil, fmt.Errorf("failed to link procedures: %w", err)
		}
		return report.FromDefUse(doc.Name, r.ComputeDefUseChains(s.logger)), nil
	}

	p, err := tabled.New(doc)
	if err != nil {
		return nil, err
	}

	switch mode {
	case modeIFDS:
		res := dataflow.NewIFDSSolver[string](p, p.Graph()).
			WithLogger(s.logger).
			SolveWithLimits(s.cfg.Limits())
		return report.FromIFDS(p.Name(), res), nil
	case modeIDE:
		res := dataflow.NewIDESolver[string, lattice.ConstValue](p, p.Graph()).
			WithLogger(s.logger).
			SolveWithConfig(s.cfg.SolverConfig())
		return report.FromIDE(p.Name(), res), nil
	case modeGraph:
		return report.FromGraph(p.Name(), p.Graph(), doc.Procedures...), nil
	default:
		return nil, fmt.Errorf("unknown mode %q (use ifds, ide, graph or defuse)", mode)
	}
}

// solveCached is solveFile behind the report cache. Reports are cached in
// msgpack form under the problem content, its path and the solver settings.
func solveCached(s *settings, mode, path string) (any, error) {
	if s.cache == nil {
		return solveFile(s, mode, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return solveFile(s, mode, path)
	}
	key := cache.Key(data, path, mode,
		strconv.Itoa(s.cfg.MaxIterations),
		strconv.Itoa(s.cfg.MaxPathEdges),
		strconv.FormatBool(s.cfg.VerifyMeet))

	if b, ok := s.cache.Get(key); ok {
		if rep := emptyReport(mode); rep != nil {
			if err := report.Decode(bytes.NewReader(b), report.FormatMsgpack, rep); err == nil {
				s.logger.Debug("report cache hit", "path", path, "mode", mode)
				return rep, nil
			}
		}
	}

	rep, err := solveFile(s, mode, path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := report.Encode(&buf, report.FormatMsgpack, rep); err != nil {
		return nil, err
	}
	s.cache.Set(key, buf.Bytes())
	return rep, nil
}

func emptyReport(mode string) any {
	switch mode {
	case modeIFDS:
		return &report.IFDSReport{}
	case modeIDE:
		return &report.IDEReport{}
	case modeGraph:
		return &report.GraphReport{}
	case modeDefUse:
		return &report.DefUseReport{}
	}
	return nil
}
