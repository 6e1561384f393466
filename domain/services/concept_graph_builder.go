package services

import (
	"math/rand"

	"jarvis-backend/domain/config"
	"jarvis-backend/domain/core/aggregates"
)

// RandomSource picks the existing concept a new concept is linked to
type RandomSource interface {
	// Intn returns a uniform value in [0, n)
	Intn(n int) int
}

type globalRand struct{}

// Intn uses the package-level generator, which is safe for concurrent use
func (globalRand) Intn(n int) int { return rand.Intn(n) }

// DefaultRandomSource returns the process-wide random source
func DefaultRandomSource() RandomSource {
	return globalRand{}
}

// ConceptGraphBuilder grows a session's concept graph from assistant replies
type ConceptGraphBuilder struct {
	extractor  *KeywordExtractor
	rng        RandomSource
	nodeGroup  int
	linkWeight float64
}

// NewConceptGraphBuilder creates a builder; a nil rng uses DefaultRandomSource
func NewConceptGraphBuilder(cfg *config.DomainConfig, rng RandomSource) *ConceptGraphBuilder {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if rng == nil {
		rng = DefaultRandomSource()
	}
	return &ConceptGraphBuilder{
		extractor:  NewKeywordExtractor(cfg),
		rng:        rng,
		nodeGroup:  cfg.DefaultNodeGroup,
		linkWeight: cfg.DefaultLinkWeight,
	}
}

// ExtractKeywords exposes the builder's keyword heuristic
func (b *ConceptGraphBuilder) ExtractKeywords(text string) []string {
	return b.extractor.ExtractKeywords(text)
}

// UpdateGraph merges the keywords of text into current and returns the new snapshot.
// current is never modified. Each new concept is linked to one concept chosen
// uniformly from those present before it was inserted.
func (b *ConceptGraphBuilder) UpdateGraph(current aggregates.ConceptGraph, text string) aggregates.ConceptGraph {
	keywords := b.extractor.ExtractKeywords(text)
	if len(keywords) == 0 {
		return current
	}

	next := current.Clone()
	for _, keyword := range keywords {
		id := NormalizeID(keyword)
		if next.HasNode(id) {
			continue
		}

		existing := len(next.Nodes)
		next.Nodes = append(next.Nodes, aggregates.GraphNode{ID: id, Group: b.nodeGroup})
		if len(next.Nodes) <= 1 {
			continue
		}

		target := next.Nodes[b.rng.Intn(existing)]
		if target.ID != id {
			next.Links = append(next.Links, aggregates.GraphLink{
				Source: id,
				Target: target.ID,
				Weight: b.linkWeight,
			})
		}
	}
	return next
}

// ResetGraph returns an empty graph
func (b *ConceptGraphBuilder) ResetGraph() aggregates.ConceptGraph {
	return aggregates.EmptyConceptGraph()
}
