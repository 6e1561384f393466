package ports

import (
	"context"
	"errors"

	"jarvis-backend/domain/core/entities"
)

// ErrMissingAPIKey is returned by backends constructed without credentials
var ErrMissingAPIKey = errors.New("conversation backend API key missing")

// Turn is one prior message handed to the conversation backend
type Turn struct {
	Role    entities.MessageRole
	Content string
}

// ModelTier selects between the fast default model and the reasoning model
type ModelTier string

const (
	TierFlash ModelTier = "flash"
	TierPro   ModelTier = "pro"
)

// ChatRequest carries everything the backend needs for one reply
type ChatRequest struct {
	History           []Turn
	Message           string
	SystemInstruction string
	Tier              ModelTier
}

// DiagramResult is the outcome of an image generation request.
// ImageURL is empty when no image was produced.
type DiagramResult struct {
	ImageURL string
	Text     string
}

// ConversationBackend is the generative-AI collaborator behind a tutor session
type ConversationBackend interface {
	// SendMessage returns the model's text reply; an empty reply is not an error
	SendMessage(ctx context.Context, req ChatRequest) (string, error)

	// GenerateDiagram asks the image model for a visual aid
	GenerateDiagram(ctx context.Context, prompt string) (DiagramResult, error)
}

// LiveAudioBackend opens bidirectional audio sessions for voice tutoring
type LiveAudioBackend interface {
	Connect(ctx context.Context, systemInstruction string) (LiveSession, error)
}

// LiveSession is an open voice conversation.
// SendAudio takes PCM16 little-endian mono samples at 16 kHz;
// Receive yields PCM16 mono chunks at 24 kHz and io.EOF once the model hangs up.
type LiveSession interface {
	SendAudio(ctx context.Context, pcm []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}
