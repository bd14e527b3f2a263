package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is an output encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ErrUnknownFormat is returned for an output format other than text, json
// or msgpack.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat converts a format name into a Format. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatMsgpack:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

type textWriter interface {
	WriteText(w io.Writer) error
}

// Encode writes v to w. MessagePack output uses the JSON field names, so
// both binary and JSON consumers see the same keys.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding msgpack: %w", err)
		}
		return nil
	case FormatText, "":
		tw, ok := v.(textWriter)
		if !ok {
			return fmt.Errorf("%w: no text form for %T", ErrUnknownFormat, v)
		}
		return tw.WriteText(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode reads a value encoded by Encode in the JSON or MessagePack format.
func Decode(r io.Reader, format Format, v any) error {
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return fmt.Errorf("decoding JSON: %w", err)
		}
		return nil
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decoding msgpack: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteText prints the report in human-readable form.
func (r *IFDSReport) WriteText(w io.Writer) error {
	p := &printer{w: w}
	p.printf("=== IFDS: %s ===\n", r.Problem)
	p.printf("Nodes (%d):\n", len(r.Nodes))
	for _, n := range r.Nodes {
		p.printf("  %s: %s\n", n.Node, strings.Join(n.Facts, ", "))
	}
	if len(r.Summaries) > 0 {
		p.printf("\nSummaries (%d):\n", len(r.Summaries))
		for _, s := range r.Summaries {
			p.printf("  %s[%s] -> %s[%s]\n", s.CallSite, s.Fact, s.ReturnSite, s.Target)
		}
	}
	p.printf("\nStats: %s\n", r.Stats)
	return p.err
}

// WriteText prints the report in human-readable form.
func (r *IDEReport) WriteText(w io.Writer) error {
	p := &printer{w: w}
	p.printf("=== IDE: %s ===\n", r.Problem)
	p.printf("Nodes (%d):\n", len(r.Nodes))
	for _, n := range r.Nodes {
		parts := make([]string, len(n.Values))
		for i, v := range n.Values {
			parts[i] = v.Fact + "=" + v.Value
		}
		p.printf("  %s: %s\n", n.Node, strings.Join(parts, ", "))
	}
	p.printf("\nStats: %s\n", r.Stats)
	return p.err
}

// WriteText prints the report in human-readable form.
func (r *GraphReport) WriteText(w io.Writer) error {
	p := &printer{w: w}
	p.printf("=== Graph: %s ===\n", r.Problem)
	p.printf("Nodes: %d\n", r.Nodes)
	p.printf("Edges: %d\n", r.Edges)
	p.printf("Entries: %v\n", r.Entries)
	p.printf("Exits: %v\n", r.Exits)
	if len(r.Unreachable) > 0 {
		p.printf("Unreachable: %v\n", r.Unreachable)
	}
	for _, c := range r.Cycles {
		p.printf("Cycle: %s\n", strings.Join(c, " -> "))
	}
	for _, proc := range r.Procedures {
		p.printf("Procedure %s: %d blocks, complexity %d\n", proc.Name, proc.Blocks, proc.Complexity)
	}
	return p.err
}

// WriteText prints the report in human-readable form.
func (r *DefUseReport) WriteText(w io.Writer) error {
	p := &printer{w: w}
	p.printf("=== Def-use: %s ===\n", r.Problem)
	p.printf("Procedures: %v\n", r.Procedures)
	p.printf("Chains (%d):\n", len(r.Chains))
	for _, c := range r.Chains {
		p.printf("  %s: %s -> %s\n", c.VarName, c.Def, c.Use)
	}
	if len(r.Undefined) > 0 {
		p.printf("\nUndefined (%d):\n", len(r.Undefined))
		for _, u := range r.Undefined {
			p.printf("  %s used at %s\n", u.VarName, u.Use)
		}
	}
	return p.err
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
