package dag

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNilWriter indicates that a nil writer was provided to ExportDOT.
var ErrNilWriter = errors.New("dag: nil writer")

// DOTOption configures ExportDOT.
type DOTOption func(*dotConfig)

type dotConfig struct {
	graphName string
	rankDir   string
	label     func(NodeID) string
}

// DOTWithGraphName overrides the DOT graph identifier.
func DOTWithGraphName(name string) DOTOption {
	return func(cfg *dotConfig) {
		if name != "" {
			cfg.graphName = name
		}
	}
}

// DOTWithRankDir sets the rank direction (e.g. "LR", "TB").
func DOTWithRankDir(rankDir string) DOTOption {
	return func(cfg *dotConfig) {
		if rankDir != "" {
			cfg.rankDir = rankDir
		}
	}
}

// DOTWithLabel decorates each node with a label, e.g. its build state.
func DOTWithLabel(label func(NodeID) string) DOTOption {
	return func(cfg *dotConfig) {
		cfg.label = label
	}
}

// ExportDOT renders the graph in Graphviz DOT format with arrows pointing
// from a dependency to its dependent. Nodes and edges are emitted in
// registration order.
func (g *Graph) ExportDOT(w io.Writer, opts ...DOTOption) error {
	if w == nil {
		return ErrNilWriter
	}

	cfg := dotConfig{graphName: "ecow", rankDir: "LR"}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := fmt.Fprintf(w, "digraph %s {\n", dotQuoteIdentifier(cfg.graphName)); err != nil {
		return err
	}
	if cfg.rankDir != "" {
		if _, err := fmt.Fprintf(w, "    rankdir=%s;\n", cfg.rankDir); err != nil {
			return err
		}
	}

	for _, id := range g.Nodes() {
		line := "    " + dotQuoteIdentifier(g.Name(id))
		if cfg.label != nil {
			if label := cfg.label(id); label != "" {
				line += " [label=" + dotQuoteIdentifier(g.Name(id)+"\n"+label) + "]"
			}
		}
		if _, err := io.WriteString(w, line+";\n"); err != nil {
			return err
		}
	}

	for _, id := range g.Nodes() {
		for _, dep := range g.deps[id] {
			if _, err := fmt.Fprintf(w, "    %s -> %s;\n", dotQuoteIdentifier(g.Name(dep)), dotQuoteIdentifier(g.Name(id))); err != nil {
				return err
			}
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func dotQuoteIdentifier(name string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range name {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
