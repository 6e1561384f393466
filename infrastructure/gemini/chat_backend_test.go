package gemini

import (
	"context"
	"testing"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/core/entities"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToHistory_DropsLeadingModelTurns(t *testing.T) {
	turns := []ports.Turn{
		{Role: entities.RoleModel, Content: "Hello Asha! I'm Jarvis."},
		{Role: entities.RoleUser, Content: "What is osmosis?"},
		{Role: entities.RoleModel, Content: "Osmosis is..."},
	}

	history := toHistory(turns)

	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, genai.Text("What is osmosis?"), history[0].Parts[0])
	assert.Equal(t, "model", history[1].Role)
}

func TestToHistory_OnlyGreeting(t *testing.T) {
	history := toHistory([]ports.Turn{{Role: entities.RoleModel, Content: "Hello"}})

	assert.Empty(t, history)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Photosynthesis "), genai.Text("uses light.")}},
		}},
	}

	assert.Equal(t, "Photosynthesis uses light.", responseText(resp))
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
}

func TestDiagramFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("The Water Cycle"),
				genai.Blob{MIMEType: "image/png", Data: []byte{0x89, 0x50}},
			}},
		}},
	}

	result := diagramFromResponse(resp)

	assert.Equal(t, "data:image/png;base64,iVA=", result.ImageURL)
	assert.Equal(t, "The Water Cycle", result.Text)
}

func TestDiagramFromResponse_TextOnly(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("cannot draw that")}},
		}},
	}

	result := diagramFromResponse(resp)

	assert.Empty(t, result.ImageURL)
	assert.Equal(t, "cannot draw that", result.Text)
}

func TestChatBackend_MissingAPIKey(t *testing.T) {
	backend := NewChatBackend(DefaultConfig(), zap.NewNop())

	_, err := backend.SendMessage(context.Background(), ports.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ports.ErrMissingAPIKey)

	_, err = backend.GenerateDiagram(context.Background(), "draw a cell")
	assert.ErrorIs(t, err, ports.ErrMissingAPIKey)

	assert.NoError(t, backend.Close())
}

func TestChatBackend_ModelFor(t *testing.T) {
	backend := NewChatBackend(DefaultConfig(), zap.NewNop())

	assert.Equal(t, "gemini-3-pro-preview", backend.modelFor(ports.TierPro))
	assert.Equal(t, "gemini-2.5-flash", backend.modelFor(ports.TierFlash))
	assert.Equal(t, "gemini-2.5-flash", backend.modelFor(""))
}
