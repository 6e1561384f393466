package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/core/entities"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Config selects the Gemini models and credentials
type Config struct {
	APIKey     string
	FlashModel string
	ProModel   string
	ImageModel string
	LiveModel  string
	Voice      string
	Timeout    time.Duration
}

// DefaultConfig returns the production model names
func DefaultConfig() Config {
	return Config{
		FlashModel: "gemini-2.5-flash",
		ProModel:   "gemini-3-pro-preview",
		ImageModel: "gemini-3-pro-image-preview",
		LiveModel:  "gemini-2.5-flash-native-audio-preview-09-2025",
		Voice:      "Kore",
		Timeout:    60 * time.Second,
	}
}

// ChatBackend answers tutor turns and diagram requests through the Gemini API.
// Without an API key every call returns ports.ErrMissingAPIKey.
type ChatBackend struct {
	cfg    Config
	logger *zap.Logger

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewChatBackend creates a backend; the genai client is dialed on first use
func NewChatBackend(cfg Config, logger *zap.Logger) *ChatBackend {
	return &ChatBackend{cfg: cfg, logger: logger}
}

func (b *ChatBackend) genaiClient(ctx context.Context) (*genai.Client, error) {
	if b.cfg.APIKey == "" {
		return nil, ports.ErrMissingAPIKey
	}
	b.once.Do(func() {
		b.client, b.initErr = genai.NewClient(ctx, option.WithAPIKey(b.cfg.APIKey))
		if b.initErr != nil {
			b.logger.Error("Failed to create Gemini client", zap.Error(b.initErr))
		}
	})
	return b.client, b.initErr
}

// SendMessage replays the history into a chat and sends the new message
func (b *ChatBackend) SendMessage(ctx context.Context, req ports.ChatRequest) (string, error) {
	client, err := b.genaiClient(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	modelName := b.modelFor(req.Tier)
	model := client.GenerativeModel(modelName)
	model.SetCandidateCount(1)
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}

	chat := model.StartChat()
	chat.History = toHistory(req.History)

	start := time.Now()
	resp, err := chat.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", modelName, err)
	}

	b.logger.Debug("Gemini reply received",
		zap.String("model", modelName),
		zap.Int("historyTurns", len(chat.History)),
		zap.Duration("duration", time.Since(start)),
	)
	return responseText(resp), nil
}

// GenerateDiagram asks the image model for a picture. Inline image data becomes
// a data URL; text parts are concatenated into the caption.
func (b *ChatBackend) GenerateDiagram(ctx context.Context, prompt string) (ports.DiagramResult, error) {
	client, err := b.genaiClient(ctx)
	if err != nil {
		return ports.DiagramResult{}, err
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	model := client.GenerativeModel(b.cfg.ImageModel)
	model.SetCandidateCount(1)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ports.DiagramResult{}, fmt.Errorf("gemini %s: %w", b.cfg.ImageModel, err)
	}
	return diagramFromResponse(resp), nil
}

// Close releases the underlying client
func (b *ChatBackend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func (b *ChatBackend) modelFor(tier ports.ModelTier) string {
	if tier == ports.TierPro {
		return b.cfg.ProModel
	}
	return b.cfg.FlashModel
}

func (b *ChatBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.cfg.Timeout)
}

// toHistory converts prior turns to chat contents. Gemini requires the history
// to open with a user turn, so leading model turns (the greeting) are dropped.
func toHistory(turns []ports.Turn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		if len(history) == 0 && turn.Role != entities.RoleUser {
			continue
		}
		history = append(history, &genai.Content{
			Role:  string(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return history
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func diagramFromResponse(resp *genai.GenerateContentResponse) ports.DiagramResult {
	var result ports.DiagramResult
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return result
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Blob:
			result.ImageURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(p.Data)
		case genai.Text:
			sb.WriteString(string(p))
		}
	}
	result.Text = sb.String()
	return result
}
