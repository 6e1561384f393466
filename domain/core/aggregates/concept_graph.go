package aggregates

import "fmt"

// GraphNode is one concept in a session's concept graph
type GraphNode struct {
	ID    string `json:"id"`
	Group int    `json:"group"`
}

// GraphLink associates two concepts. Weight is serialized as "value",
// the stroke width input of the force-directed renderer.
type GraphLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"value"`
}

// ConceptGraph is an append-only snapshot of the concepts mentioned in a session.
// Snapshots are treated as immutable once handed out; updates build a new one.
type ConceptGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// EmptyConceptGraph returns a graph with no nodes or links
func EmptyConceptGraph() ConceptGraph {
	return ConceptGraph{
		Nodes: []GraphNode{},
		Links: []GraphLink{},
	}
}

// HasNode reports whether a node with the given id exists
func (g ConceptGraph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// NodeCount returns the number of nodes
func (g ConceptGraph) NodeCount() int { return len(g.Nodes) }

// LinkCount returns the number of links
func (g ConceptGraph) LinkCount() int { return len(g.Links) }

// Clone returns a deep copy whose slices do not alias the receiver
func (g ConceptGraph) Clone() ConceptGraph {
	out := ConceptGraph{
		Nodes: make([]GraphNode, len(g.Nodes)),
		Links: make([]GraphLink, len(g.Links)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Links, g.Links)
	return out
}

// Validate checks node uniqueness and that every link endpoint exists
func (g ConceptGraph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for i, l := range g.Links {
		if _, ok := seen[l.Source]; !ok {
			return fmt.Errorf("link %d: unknown source %q", i, l.Source)
		}
		if _, ok := seen[l.Target]; !ok {
			return fmt.Errorf("link %d: unknown target %q", i, l.Target)
		}
	}
	return nil
}
