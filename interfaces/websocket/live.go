package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	querybus "jarvis-backend/application/queries/bus"
	"jarvis-backend/application/ports"
	"jarvis-backend/application/queries"
	"jarvis-backend/application/services"
	"jarvis-backend/infrastructure/gemini"
	"jarvis-backend/pkg/auth"
	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// LiveConnectFailed is the close reason sent when the voice model is unreachable
const LiveConnectFailed = "Could not connect to Live API."

const maxAudioFrameSize = 1 << 20

// LiveRelay bridges a browser microphone socket and a live voice session.
// Client frames are float32 samples at 16 kHz; model audio goes back as PCM16 at 24 kHz.
type LiveRelay struct {
	backend  ports.LiveAudioBackend
	queryBus *querybus.QueryBus
	upgrader websocket.Upgrader
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewLiveRelay creates a new live voice relay
func NewLiveRelay(backend ports.LiveAudioBackend, queryBus *querybus.QueryBus, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *LiveRelay {
	return &LiveRelay{
		backend:  backend,
		queryBus: queryBus,
		upgrader: NewUpgrader(),
		errors:   errors,
		logger:   logger,
	}
}

// HandleLive handles GET /sessions/{sessionID}/live
func (l *LiveRelay) HandleLive(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		l.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	result, err := l.queryBus.Ask(r.Context(), queries.GetSessionQuery{SessionID: sessionID, UserID: user.UserID})
	if err != nil {
		l.errors.Handle(w, r, err)
		return
	}
	view := result.(*queries.SessionView)

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	// the request context ends with the upgrade on some servers
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	logger := l.logger.With(zap.String("sessionID", sessionID), zap.String("userID", user.UserID))

	live, err := l.backend.Connect(ctx, services.LiveInstruction(view.User))
	if err != nil {
		logger.Error("Failed to open live session", zap.Error(err))
		closeWith(conn, websocket.CloseInternalServerErr, LiveConnectFailed)
		return
	}
	defer live.Close()

	logger.Info("Live session opened")
	l.bridge(ctx, cancel, conn, live, logger)
	logger.Info("Live session closed")
}

func (l *LiveRelay) bridge(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, live ports.LiveSession, logger *zap.Logger) {
	var wg sync.WaitGroup
	wg.Add(2)

	// browser -> model
	go func() {
		defer wg.Done()
		defer cancel()
		conn.SetReadLimit(maxAudioFrameSize)
		for {
			messageType, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			pcm, err := gemini.Float32ToPCM16(frame)
			if err != nil {
				logger.Debug("Dropping malformed audio frame", zap.Int("bytes", len(frame)))
				continue
			}
			if err := live.SendAudio(ctx, pcm); err != nil {
				logger.Warn("Failed to forward audio", zap.Error(err))
				return
			}
		}
	}()

	// model -> browser
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			chunk, err := live.Receive(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					logger.Warn("Live session receive failed", zap.Error(err))
				}
				closeWith(conn, websocket.CloseNormalClosure, "")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	// unblock the browser reader
	conn.SetReadDeadline(time.Now())
	live.Close()
	wg.Wait()
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}
