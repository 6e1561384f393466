package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"jarvis-backend/application/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultLiveEndpoint is the Gemini Live bidirectional streaming endpoint
const DefaultLiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

const (
	inputAudioMIME = "audio/pcm;rate=16000"
	liveWriteWait  = 10 * time.Second
	setupWait      = 15 * time.Second
)

// LiveBackend opens Gemini Live audio sessions over a websocket
type LiveBackend struct {
	cfg      Config
	endpoint string
	dialer   *websocket.Dialer
	logger   *zap.Logger
}

// NewLiveBackend creates a live audio backend. An empty endpoint uses DefaultLiveEndpoint.
func NewLiveBackend(cfg Config, endpoint string, logger *zap.Logger) *LiveBackend {
	if endpoint == "" {
		endpoint = DefaultLiveEndpoint
	}
	return &LiveBackend{
		cfg:      cfg,
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		logger:   logger,
	}
}

// Wire messages of the Live protocol. Only the fields used here are modeled.

type liveSetup struct {
	Setup liveSetupBody `json:"setup"`
}

type liveSetupBody struct {
	Model             string        `json:"model"`
	GenerationConfig  liveGenConfig `json:"generationConfig"`
	SystemInstruction *liveContent  `json:"systemInstruction,omitempty"`
}

type liveGenConfig struct {
	ResponseModalities []string          `json:"responseModalities"`
	SpeechConfig       *liveSpeechConfig `json:"speechConfig,omitempty"`
}

type liveSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type liveContent struct {
	Parts []livePart `json:"parts"`
}

type livePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *liveBlob `json:"inlineData,omitempty"`
}

type liveBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type liveRealtimeInput struct {
	RealtimeInput struct {
		Audio liveBlob `json:"audio"`
	} `json:"realtimeInput"`
}

type liveServerMessage struct {
	SetupComplete *struct{} `json:"setupComplete,omitempty"`
	ServerContent *struct {
		ModelTurn    *liveContent `json:"modelTurn,omitempty"`
		TurnComplete bool         `json:"turnComplete,omitempty"`
		Interrupted  bool         `json:"interrupted,omitempty"`
	} `json:"serverContent,omitempty"`
	GoAway *struct{} `json:"goAway,omitempty"`
}

// Connect dials the Live endpoint, sends the session setup and waits for it
// to be acknowledged.
func (b *LiveBackend) Connect(ctx context.Context, systemInstruction string) (ports.LiveSession, error) {
	if b.cfg.APIKey == "" {
		return nil, ports.ErrMissingAPIKey
	}

	target, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid live endpoint: %w", err)
	}
	q := target.Query()
	q.Set("key", b.cfg.APIKey)
	target.RawQuery = q.Encode()

	conn, resp, err := b.dialer.DialContext(ctx, target.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("live dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("live dial failed: %w", err)
	}

	if err := b.handshake(conn, systemInstruction); err != nil {
		conn.Close()
		return nil, err
	}

	b.logger.Info("Gemini Live session opened", zap.String("model", b.cfg.LiveModel))
	return &liveSession{conn: conn, logger: b.logger}, nil
}

func (b *LiveBackend) handshake(conn *websocket.Conn, systemInstruction string) error {
	setup := liveSetup{Setup: liveSetupBody{
		Model: "models/" + strings.TrimPrefix(b.cfg.LiveModel, "models/"),
		GenerationConfig: liveGenConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}}
	if b.cfg.Voice != "" {
		speech := &liveSpeechConfig{}
		speech.VoiceConfig.PrebuiltVoiceConfig.VoiceName = b.cfg.Voice
		setup.Setup.GenerationConfig.SpeechConfig = speech
	}
	if systemInstruction != "" {
		setup.Setup.SystemInstruction = &liveContent{Parts: []livePart{{Text: systemInstruction}}}
	}

	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(setup); err != nil {
		return fmt.Errorf("failed to send live setup: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(setupWait))
	defer conn.SetReadDeadline(time.Time{})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("live setup not acknowledged: %w", err)
		}
		var msg liveServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("invalid live setup reply: %w", err)
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

// liveSession is an open Live conversation. Writes are serialized; reads
// happen on a single goroutine (the relay).
type liveSession struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	writeMu sync.Mutex
	pending [][]byte
	once    sync.Once
}

// SendAudio forwards one PCM16 16 kHz chunk
func (s *liveSession) SendAudio(ctx context.Context, pcm []byte) error {
	var msg liveRealtimeInput
	msg.RealtimeInput.Audio = liveBlob{
		MIMEType: inputAudioMIME,
		Data:     base64.StdEncoding.EncodeToString(pcm),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	deadline := time.Now().Add(liveWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// Receive returns the next chunk of model audio, or io.EOF once the server
// closes the session.
func (s *liveSession) Receive(ctx context.Context) ([]byte, error) {
	for len(s.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d, ok := ctx.Deadline(); ok {
			s.conn.SetReadDeadline(d)
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("live receive failed: %w", err)
		}

		chunks, done, err := decodeServerAudio(data)
		if err != nil {
			s.logger.Warn("Skipping malformed live message", zap.Error(err))
			continue
		}
		s.pending = append(s.pending, chunks...)
		if done && len(s.pending) == 0 {
			return nil, io.EOF
		}
	}

	chunk := s.pending[0]
	s.pending = s.pending[1:]
	return chunk, nil
}

// Close ends the session
func (s *liveSession) Close() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

// decodeServerAudio extracts the inline audio chunks of one server message.
// done reports a goAway from the server.
func decodeServerAudio(data []byte) (chunks [][]byte, done bool, err error) {
	var msg liveServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false, err
	}
	if msg.GoAway != nil {
		return nil, true, nil
	}
	if msg.ServerContent == nil || msg.ServerContent.ModelTurn == nil {
		return nil, false, nil
	}
	for _, part := range msg.ServerContent.ModelTurn.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, false, fmt.Errorf("invalid audio payload: %w", err)
		}
		chunks = append(chunks, raw)
	}
	return chunks, false, nil
}
