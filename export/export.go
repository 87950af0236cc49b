// Package export projects a journal into a visualizable graph document.
//
// Projections are pure functions of a snapshot: nothing is mutated, and
// two exports of the same journal state are byte-identical. Safe to run
// mid-search from a separate process reading the checkpoint.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/types"
)

// Graph is the exported graph document: nodes with per-node summaries
// plus explicit parent edges. Node and edge order follows creation
// order, so the document is deterministic for a given journal state.
type Graph struct {
	SearchID  string      `json:"search_id"`
	NodeCount int         `json:"node_count"`
	BestNode  *string     `json:"best_node,omitempty"`
	Nodes     []GraphNode `json:"nodes"`
	Edges     []GraphEdge `json:"edges"`
}

// GraphNode is the per-node summary carried in the export.
type GraphNode struct {
	ID            string   `json:"id"`
	Stage         string   `json:"stage"`
	IsBuggy       bool     `json:"is_buggy"`
	Metric        *float64 `json:"metric,omitempty"`
	Depth         int      `json:"depth"`
	CreationOrder int64    `json:"creation_order"`
}

// GraphEdge is a parent-to-child link.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Build projects a snapshot into a graph document.
func Build(meta types.SearchMeta, snap *journal.Snapshot, direction types.MetricDirection) *Graph {
	nodes := snap.Nodes()
	g := &Graph{
		SearchID:  meta.SearchID,
		NodeCount: len(nodes),
		Nodes:     make([]GraphNode, 0, len(nodes)),
		Edges:     make([]GraphEdge, 0, len(nodes)),
	}
	if best, ok := snap.Best(direction); ok {
		id := best.ID
		g.BestNode = &id
	}
	for _, n := range nodes {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:            n.ID,
			Stage:         string(n.Stage),
			IsBuggy:       n.IsBuggy,
			Metric:        n.Metric,
			Depth:         n.Depth,
			CreationOrder: n.CreationOrder,
		})
		if n.ParentID != nil {
			g.Edges = append(g.Edges, GraphEdge{From: *n.ParentID, To: n.ID})
		}
	}
	return g
}

// JSON renders the graph as an indented JSON document.
func (g *Graph) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal graph: %w", err)
	}
	return append(data, '\n'), nil
}

// DOT renders the graph in Graphviz dot syntax. Buggy nodes are drawn
// red, good nodes green, and the best node double-bordered.
func (g *Graph) DOT() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", g.SearchID)
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=filled];\n")

	for _, n := range g.Nodes {
		label := fmt.Sprintf("%s #%d", n.Stage, n.CreationOrder)
		if n.Metric != nil {
			label += fmt.Sprintf("\\nmetric=%g", *n.Metric)
		}
		color := "palegreen"
		if n.IsBuggy {
			color = "lightcoral"
		}
		attrs := fmt.Sprintf("label=\"%s\", fillcolor=%s", label, color)
		if g.BestNode != nil && *g.BestNode == n.ID {
			attrs += ", peripheries=2"
		}
		fmt.Fprintf(&b, "  %q [%s];\n", n.ID, attrs)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -> %q;\n", e.From, e.To)
	}
	b.WriteString("}\n")
	return []byte(b.String())
}
