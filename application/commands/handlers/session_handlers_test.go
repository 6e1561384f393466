package handlers

import (
	"context"
	"testing"

	"jarvis-backend/application/commands"
	"jarvis-backend/application/ports"
	"jarvis-backend/application/services"
	"jarvis-backend/domain/config"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/domain/core/valueobjects"
	domainservices "jarvis-backend/domain/services"
	"jarvis-backend/infrastructure/messaging"
	"jarvis-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cannedBackend struct {
	reply string
}

func (b cannedBackend) SendMessage(ctx context.Context, req ports.ChatRequest) (string, error) {
	return b.reply, nil
}

func (b cannedBackend) GenerateDiagram(ctx context.Context, prompt string) (ports.DiagramResult, error) {
	return ports.DiagramResult{}, nil
}

type firstPick struct{}

func (firstPick) Intn(int) int { return 0 }

func TestSendMessageHandler_FillsTurnOutcome(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	tutor := services.NewTutorService(
		memory.NewSessionRepository(),
		cannedBackend{reply: "Friction opposes Motion"},
		domainservices.NewConceptGraphBuilder(cfg, firstPick{}),
		nil,
		messaging.NewLogPublisher(zap.NewNop()),
		cfg,
		valueobjects.ThemeLight,
		nil,
		zap.NewNop(),
	)
	user, err := entities.NewUser("Asha", "asha@example.com", entities.RoleStudent, "Class 9", entities.StreamScience, false)
	require.NoError(t, err)
	session, err := tutor.StartSession(context.Background(), valueobjects.NewSessionID(), user)
	require.NoError(t, err)

	var outcome commands.TurnOutcome
	cmd := commands.SendMessageCommand{
		SessionID: session.ID().String(),
		UserID:    user.ID,
		MessageID: "m1",
		Content:   "Why do things stop?",
		Result:    &outcome,
	}
	require.NoError(t, NewSendMessageHandler(tutor, zap.NewNop()).Handle(context.Background(), cmd))

	assert.Equal(t, "m1", outcome.UserMessage.ID)
	assert.Equal(t, "Friction opposes Motion", outcome.Reply.Content)
	assert.Equal(t, session.ID().String(), outcome.Graph.SessionID)
	assert.Equal(t, valueobjects.ThemeLight, outcome.Graph.Theme)
	assert.True(t, outcome.Graph.Graph.HasNode("Friction"))
	assert.True(t, outcome.Graph.Graph.HasNode("Motion"))

	// clearing afterwards does not change what the turn reported
	require.NoError(t, tutor.ClearHistory(context.Background(), session.ID(), user.ID))
	assert.Equal(t, "Friction opposes Motion", outcome.Reply.Content)
	assert.Equal(t, 2, outcome.Graph.Graph.NodeCount())
}
