package ports

import (
	"context"

	"jarvis-backend/domain/core/aggregates"
	"jarvis-backend/domain/core/valueobjects"
)

// LayoutHints are the force simulation parameters the client renderer uses
type LayoutHints struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	CenterX          float64 `json:"centerX"`
	CenterY          float64 `json:"centerY"`
	LinkDistance     float64 `json:"linkDistance"`
	ManyBodyStrength float64 `json:"manyBodyStrength"`
}

// GraphSnapshot is a complete concept graph handed to the render surface
type GraphSnapshot struct {
	SessionID string                  `json:"sessionId"`
	Theme     valueobjects.Theme      `json:"theme"`
	Graph     aggregates.ConceptGraph `json:"graph"`
	Layout    LayoutHints             `json:"layout"`
}

// RenderSurface displays concept graphs. Every call carries the full graph;
// implementations redraw rather than diff.
type RenderSurface interface {
	Render(ctx context.Context, snapshot GraphSnapshot) error
}

// MessageTypeGraphSnapshot tags snapshot frames pushed to subscribers
const MessageTypeGraphSnapshot = "GRAPH_SNAPSHOT"

// SnapshotMessage is the websocket frame carrying a snapshot
type SnapshotMessage struct {
	Type      string        `json:"type"`
	Timestamp int64         `json:"timestamp"`
	Data      GraphSnapshot `json:"data"`
}

// NewSnapshotMessage wraps snapshot in a GRAPH_SNAPSHOT frame stamped at unix seconds ts
func NewSnapshotMessage(snapshot GraphSnapshot, ts int64) SnapshotMessage {
	return SnapshotMessage{Type: MessageTypeGraphSnapshot, Timestamp: ts, Data: snapshot}
}
