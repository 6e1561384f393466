package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/config"
	"jarvis-backend/domain/core/aggregates"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/domain/core/valueobjects"
	domainservices "jarvis-backend/domain/services"
	pkgerrors "jarvis-backend/pkg/errors"
	"jarvis-backend/pkg/utils"

	"go.uber.org/zap"
)

// Fallback replies shown when the conversation backend cannot answer
const (
	ReplyEmpty         = "I didn't catch that."
	ReplyBackendError  = "I encountered an error processing your request. Please try again."
	ReplyMissingAPIKey = "Error: API Key missing."
	DiagramCaption     = "Here is a visual aid."
)

// TurnResult is what one SendMessage produced
type TurnResult struct {
	UserMessage entities.Message
	Reply       entities.Message
	Graph       aggregates.ConceptGraph
}

// sessionLock serializes mutations of one session (turn) and guards reads of
// its state while a mutation is applied (state). A chat turn holds turn for
// its whole duration but only holds state around aggregate changes, so reads
// are not blocked by the conversation backend.
type sessionLock struct {
	turn  sync.Mutex
	state sync.RWMutex
}

// TutorService orchestrates tutoring sessions: chat turns, diagram requests,
// concept graph growth and render pushes.
type TutorService struct {
	sessions  ports.SessionRepository
	backend   ports.ConversationBackend
	builder   *domainservices.ConceptGraphBuilder
	render    ports.RenderSurface
	publisher ports.EventPublisher
	cfg       *config.DomainConfig
	theme     valueobjects.Theme
	clock     utils.Clock
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewTutorService creates a new tutor service
func NewTutorService(
	sessions ports.SessionRepository,
	backend ports.ConversationBackend,
	builder *domainservices.ConceptGraphBuilder,
	render ports.RenderSurface,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	theme valueobjects.Theme,
	clock utils.Clock,
	logger *zap.Logger,
) *TutorService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &TutorService{
		sessions:  sessions,
		backend:   backend,
		builder:   builder,
		render:    render,
		publisher: publisher,
		cfg:       cfg,
		theme:     theme,
		clock:     clock,
		logger:    logger,
		locks:     make(map[string]*sessionLock),
	}
}

// StartSession opens a session for user and renders its empty graph
func (s *TutorService) StartSession(ctx context.Context, id valueobjects.SessionID, user *entities.User) (*aggregates.TutorSession, error) {
	session, err := aggregates.NewTutorSession(id, user, s.clock.Now())
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Tutor session started",
		zap.String("sessionID", session.ID().String()),
		zap.String("userID", user.ID),
	)

	s.commit(ctx, session)
	s.pushGraph(ctx, session.ID(), session.Graph())
	return session, nil
}

// SendMessage runs one chat turn. The reply is a diagram for Pro students
// asking for one and chat otherwise; the student message and reply are then
// recorded together, the concept graph grows from the reply and is pushed to
// the render surface.
func (s *TutorService) SendMessage(ctx context.Context, sessionID valueobjects.SessionID, userID, messageID, content string) (*TurnResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewValidationError("message content cannot be empty")
	}
	if s.cfg.MaxMessageLength > 0 && len(content) > s.cfg.MaxMessageLength {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("message exceeds %d characters", s.cfg.MaxMessageLength))
	}

	session, lock, err := s.acquire(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer lock.turn.Unlock()

	lock.state.RLock()
	history := session.Messages()
	user := session.User()
	mode := session.Mode()
	lock.state.RUnlock()

	// nothing is recorded until the backend answered
	sentAt := s.clock.Now()
	reply, graphText, err := s.reply(ctx, user, mode, history, content)
	if err != nil {
		return nil, err
	}

	lock.state.Lock()
	userMsg, err := session.AppendUserMessage(messageID, content, sentAt)
	if err != nil {
		lock.state.Unlock()
		return nil, domainError(err)
	}
	now := s.clock.Now()
	if err := session.AppendModelMessage(reply, now); err != nil {
		lock.state.Unlock()
		return nil, domainError(err)
	}
	graph := s.builder.UpdateGraph(session.Graph(), graphText)
	if err := session.ApplyGraph(graph, now); err != nil {
		lock.state.Unlock()
		return nil, domainError(err)
	}
	lock.state.Unlock()

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.commit(ctx, session)
	s.pushGraph(ctx, sessionID, graph)

	return &TurnResult{UserMessage: userMsg, Reply: reply, Graph: graph}, nil
}

// reply produces the model message and the text the concept graph grows from.
// It fails only when the caller canceled; backend failures become fallback
// replies.
func (s *TutorService) reply(ctx context.Context, user entities.User, mode valueobjects.TutorMode, history []entities.Message, content string) (entities.Message, string, error) {
	if user.IsPro && s.wantsDiagram(content) {
		result, err := s.backend.GenerateDiagram(ctx, content)
		if err != nil {
			s.logger.Warn("Diagram generation failed, falling back to chat",
				zap.String("userID", user.ID),
				zap.Error(err),
			)
		} else if result.ImageURL != "" {
			caption := result.Text
			if caption == "" {
				caption = DiagramCaption
			}
			graphText := result.Text
			if graphText == "" {
				graphText = content
			}
			return entities.NewImageMessage(caption, result.ImageURL, s.clock.Now()), graphText, nil
		}
	}

	turns := make([]ports.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, ports.Turn{Role: m.Role, Content: m.Content})
	}

	text, err := s.backend.SendMessage(ctx, ports.ChatRequest{
		History:           turns,
		Message:           content,
		SystemInstruction: SystemInstruction(user, mode),
		Tier:              SelectModelTier(user, mode),
	})
	switch {
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		s.logger.Info("Chat turn abandoned by the caller",
			zap.String("userID", user.ID),
			zap.String("mode", mode.String()),
		)
		return entities.Message{}, "", fmt.Errorf("chat turn abandoned: %w", context.Canceled)
	case errors.Is(err, ports.ErrMissingAPIKey):
		text = ReplyMissingAPIKey
	case err != nil:
		s.logger.Error("Conversation backend failed",
			zap.String("userID", user.ID),
			zap.String("mode", mode.String()),
			zap.Error(err),
		)
		text = ReplyBackendError
	case text == "":
		text = ReplyEmpty
	}

	return entities.NewMessage(entities.RoleModel, text, s.clock.Now()), text, nil
}

func (s *TutorService) wantsDiagram(content string) bool {
	lower := strings.ToLower(content)
	for _, trigger := range s.cfg.DiagramTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// ClearHistory replaces the history with a greeting and resets the concept graph
func (s *TutorService) ClearHistory(ctx context.Context, sessionID valueobjects.SessionID, userID string) error {
	return s.mutate(ctx, sessionID, userID, true, func(session *aggregates.TutorSession) error {
		return session.ClearHistory(s.builder.ResetGraph(), s.clock.Now())
	})
}

// SetMode switches the tutoring mode of a session
func (s *TutorService) SetMode(ctx context.Context, sessionID valueobjects.SessionID, userID string, mode valueobjects.TutorMode) error {
	return s.mutate(ctx, sessionID, userID, false, func(session *aggregates.TutorSession) error {
		return session.SetMode(mode, s.clock.Now())
	})
}

// EndSession discards a session and its concept graph
func (s *TutorService) EndSession(ctx context.Context, sessionID valueobjects.SessionID, userID string) error {
	_, err := s.end(ctx, sessionID, userID, false)
	return err
}

// end discards the session. With idleOnly it first re-checks expiry under the
// turn lock and reports false when a turn touched the session meanwhile.
func (s *TutorService) end(ctx context.Context, sessionID valueobjects.SessionID, userID string, idleOnly bool) (bool, error) {
	session, lock, err := s.acquire(ctx, sessionID, userID)
	if err != nil {
		return false, err
	}
	defer lock.turn.Unlock()

	lock.state.Lock()
	now := s.clock.Now()
	if idleOnly && !session.IsExpired(s.cfg.SessionTimeout, now) {
		lock.state.Unlock()
		return false, nil
	}
	err = session.End(now)
	lock.state.Unlock()
	if err != nil {
		return false, domainError(err)
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	s.commit(ctx, session)
	s.forget(sessionID)

	s.logger.Info("Tutor session ended",
		zap.String("sessionID", sessionID.String()),
		zap.Bool("idle", idleOnly),
	)
	return true, nil
}

// View runs fn against a session the user owns while no mutation is applied
func (s *TutorService) View(ctx context.Context, sessionID valueobjects.SessionID, userID string, fn func(*aggregates.TutorSession) error) error {
	session, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return err
	}

	lock := s.lockFor(sessionID)
	lock.state.RLock()
	defer lock.state.RUnlock()
	return fn(session)
}

// Snapshot wraps a graph with the render parameters
func (s *TutorService) Snapshot(sessionID valueobjects.SessionID, graph aggregates.ConceptGraph) ports.GraphSnapshot {
	return ports.GraphSnapshot{
		SessionID: sessionID.String(),
		Theme:     s.theme,
		Graph:     graph,
		Layout: ports.LayoutHints{
			Width:            s.cfg.LayoutWidth,
			Height:           s.cfg.LayoutHeight,
			CenterX:          float64(s.cfg.LayoutWidth) / 2,
			CenterY:          float64(s.cfg.LayoutHeight) / 2,
			LinkDistance:     s.cfg.LinkDistance,
			ManyBodyStrength: s.cfg.ManyBodyStrength,
		},
	}
}

// ExpireIdleSessions ends every session idle longer than the configured timeout
func (s *TutorService) ExpireIdleSessions(ctx context.Context) (int, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	expired := 0
	now := s.clock.Now()
	for _, session := range sessions {
		lock := s.lockFor(session.ID())
		lock.state.RLock()
		idle := session.IsExpired(s.cfg.SessionTimeout, now)
		lock.state.RUnlock()
		if !idle {
			continue
		}
		ended, err := s.end(ctx, session.ID(), session.UserID(), true)
		if err != nil {
			s.logger.Warn("Failed to expire session",
				zap.String("sessionID", session.ID().String()),
				zap.Error(err),
			)
			continue
		}
		if ended {
			expired++
		}
	}
	return expired, nil
}

func (s *TutorService) mutate(ctx context.Context, sessionID valueobjects.SessionID, userID string, render bool, fn func(*aggregates.TutorSession) error) error {
	session, lock, err := s.acquire(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	defer lock.turn.Unlock()

	lock.state.Lock()
	err = fn(session)
	graph := session.Graph()
	lock.state.Unlock()
	if err != nil {
		return domainError(err)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.commit(ctx, session)
	if render {
		s.pushGraph(ctx, sessionID, graph)
	}
	return nil
}

// acquire returns an owned session with its turn lock held. Lock entries are
// only created for sessions that exist, and dropped again when the session
// disappeared while waiting for the lock.
func (s *TutorService) acquire(ctx context.Context, sessionID valueobjects.SessionID, userID string) (*aggregates.TutorSession, *sessionLock, error) {
	if _, err := s.loadOwned(ctx, sessionID, userID); err != nil {
		return nil, nil, err
	}

	lock := s.lockFor(sessionID)
	lock.turn.Lock()

	session, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		lock.turn.Unlock()
		if pkgerrors.IsNotFound(err) {
			s.forget(sessionID)
		}
		return nil, nil, err
	}
	return session, lock, nil
}

func (s *TutorService) loadOwned(ctx context.Context, sessionID valueobjects.SessionID, userID string) (*aggregates.TutorSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOwnedBy(userID) {
		return nil, pkgerrors.NewForbiddenError("session belongs to another user")
	}
	return session, nil
}

// commit publishes pending domain events. Publishing failures are logged,
// never returned: the turn already happened.
func (s *TutorService) commit(ctx context.Context, session *aggregates.TutorSession) {
	pending := session.GetUncommittedEvents()
	if len(pending) == 0 {
		return
	}
	if err := s.publisher.PublishBatch(ctx, pending); err != nil {
		s.logger.Warn("Failed to publish session events",
			zap.String("sessionID", session.ID().String()),
			zap.Int("count", len(pending)),
			zap.Error(err),
		)
	}
	session.MarkEventsAsCommitted()
}

func (s *TutorService) pushGraph(ctx context.Context, sessionID valueobjects.SessionID, graph aggregates.ConceptGraph) {
	if s.render == nil {
		return
	}
	if err := s.render.Render(ctx, s.Snapshot(sessionID, graph)); err != nil {
		s.logger.Warn("Failed to render concept graph",
			zap.String("sessionID", sessionID.String()),
			zap.Error(err),
		)
	}
}

func (s *TutorService) lockFor(sessionID valueobjects.SessionID) *sessionLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID.String()]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID.String()] = lock
	}
	return lock
}

func (s *TutorService) forget(sessionID valueobjects.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, sessionID.String())
}

func domainError(err error) error {
	switch {
	case errors.Is(err, aggregates.ErrEmptyMessage), errors.Is(err, aggregates.ErrInvalidMode):
		return pkgerrors.NewValidationError(err.Error())
	case errors.Is(err, aggregates.ErrSessionEnded):
		return pkgerrors.NewNotFoundError("session")
	default:
		return err
	}
}
