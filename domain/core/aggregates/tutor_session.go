package aggregates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jarvis-backend/domain/core/entities"
	"jarvis-backend/domain/core/valueobjects"
	"jarvis-backend/domain/events"
)

var (
	ErrEmptyMessage = errors.New("message content cannot be empty")
	ErrSessionEnded = errors.New("session has ended")
	ErrGraphShrunk  = errors.New("concept graph can only grow between resets")
	ErrInvalidMode  = errors.New("invalid tutor mode")
	ErrMissingOwner = errors.New("session requires a user")
)

// TutorSession is the aggregate root for one student's conversation.
// It owns the message history, the tutoring mode and the concept graph.
type TutorSession struct {
	id        valueobjects.SessionID
	user      entities.User
	mode      valueobjects.TutorMode
	messages  []entities.Message
	graph     ConceptGraph
	createdAt time.Time
	updatedAt time.Time
	ended     bool
	version   int
	events    []events.DomainEvent
}

// NewTutorSession opens a session with the personalized greeting.
// A zero id is replaced with a fresh one.
func NewTutorSession(id valueobjects.SessionID, user *entities.User, now time.Time) (*TutorSession, error) {
	if user == nil || user.ID == "" {
		return nil, ErrMissingOwner
	}
	if id.IsZero() {
		id = valueobjects.NewSessionID()
	}

	s := &TutorSession{
		id:        id,
		user:      *user,
		mode:      valueobjects.DefaultTutorMode,
		graph:     EmptyConceptGraph(),
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}
	s.messages = []entities.Message{entities.NewMessage(entities.RoleModel, WelcomeGreeting(user), now)}

	s.addEvent(events.NewSessionStarted(s.id, user.ID, s.mode, now))
	return s, nil
}

// WelcomeGreeting is the first model turn of every session
func WelcomeGreeting(user *entities.User) string {
	return fmt.Sprintf("Hello %s! I'm Jarvis. I see you're studying %s in %s. How can I help you today?",
		user.Name, user.Stream, user.Standard)
}

// ClearedGreeting replaces the history after a clear
func ClearedGreeting(user *entities.User) string {
	return fmt.Sprintf("History cleared. What would you like to learn next, %s?", user.Name)
}

func (s *TutorSession) ID() valueobjects.SessionID   { return s.id }
func (s *TutorSession) User() entities.User          { return s.user }
func (s *TutorSession) UserID() string               { return s.user.ID }
func (s *TutorSession) Mode() valueobjects.TutorMode { return s.mode }
func (s *TutorSession) CreatedAt() time.Time         { return s.createdAt }
func (s *TutorSession) UpdatedAt() time.Time         { return s.updatedAt }
func (s *TutorSession) Ended() bool                  { return s.ended }
func (s *TutorSession) Version() int                 { return s.version }

// Graph returns the current concept graph snapshot
func (s *TutorSession) Graph() ConceptGraph {
	return s.graph
}

// Messages returns a copy of the full history
func (s *TutorSession) Messages() []entities.Message {
	out := make([]entities.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// MessageCount returns the number of turns in the history
func (s *TutorSession) MessageCount() int {
	return len(s.messages)
}

// IsOwnedBy reports whether userID owns the session
func (s *TutorSession) IsOwnedBy(userID string) bool {
	return s.user.ID == userID
}

// AppendUserMessage records a student turn; an empty messageID is generated
func (s *TutorSession) AppendUserMessage(messageID, content string, now time.Time) (entities.Message, error) {
	if s.ended {
		return entities.Message{}, ErrSessionEnded
	}
	if strings.TrimSpace(content) == "" {
		return entities.Message{}, ErrEmptyMessage
	}

	msg := entities.NewMessage(entities.RoleUser, content, now)
	if messageID != "" {
		msg.ID = messageID
	}
	s.appendMessage(msg, now)
	return msg, nil
}

// AppendModelMessage records an assistant turn
func (s *TutorSession) AppendModelMessage(msg entities.Message, now time.Time) error {
	if s.ended {
		return ErrSessionEnded
	}
	msg.Role = entities.RoleModel
	s.appendMessage(msg, now)
	return nil
}

func (s *TutorSession) appendMessage(msg entities.Message, now time.Time) {
	s.messages = append(s.messages, msg)
	s.touch(now)
	s.addEvent(events.NewMessageAdded(s.id, msg.ID, string(msg.Role), string(msg.Type), now, s.version))
}

// ApplyGraph replaces the graph with a grown snapshot and records the new
// concepts and links as events. The next snapshot must extend the current one.
func (s *TutorSession) ApplyGraph(next ConceptGraph, now time.Time) error {
	if s.ended {
		return ErrSessionEnded
	}
	if len(next.Nodes) < len(s.graph.Nodes) || len(next.Links) < len(s.graph.Links) {
		return ErrGraphShrunk
	}
	if len(next.Nodes) == len(s.graph.Nodes) && len(next.Links) == len(s.graph.Links) {
		return nil
	}

	added := next.Nodes[len(s.graph.Nodes):]
	linked := next.Links[len(s.graph.Links):]

	s.graph = next
	s.touch(now)
	for _, n := range added {
		s.addEvent(events.NewConceptAdded(s.id, n.ID, n.Group, now, s.version))
	}
	for _, l := range linked {
		s.addEvent(events.NewConceptsLinked(s.id, l.Source, l.Target, l.Weight, now, s.version))
	}
	return nil
}

// ClearHistory replaces the history with a single greeting and resets the graph
func (s *TutorSession) ClearHistory(empty ConceptGraph, now time.Time) error {
	if s.ended {
		return ErrSessionEnded
	}
	removedMessages := len(s.messages)
	removedConcepts := len(s.graph.Nodes)

	s.messages = []entities.Message{entities.NewMessage(entities.RoleModel, ClearedGreeting(&s.user), now)}
	s.graph = empty
	s.touch(now)
	s.addEvent(events.NewHistoryCleared(s.id, removedMessages, removedConcepts, now, s.version))
	return nil
}

// SetMode switches the tutoring mode
func (s *TutorSession) SetMode(mode valueobjects.TutorMode, now time.Time) error {
	if s.ended {
		return ErrSessionEnded
	}
	if !mode.IsValid() {
		return ErrInvalidMode
	}
	if mode == s.mode {
		return nil
	}
	old := s.mode
	s.mode = mode
	s.touch(now)
	s.addEvent(events.NewModeChanged(s.id, old, mode, now, s.version))
	return nil
}

// MessagesSince returns the turns from messageID (inclusive) to the end
func (s *TutorSession) MessagesSince(messageID string) []entities.Message {
	for i, m := range s.messages {
		if m.ID == messageID {
			out := make([]entities.Message, len(s.messages)-i)
			copy(out, s.messages[i:])
			return out
		}
	}
	return []entities.Message{}
}

// SearchMessages returns turns whose content contains query, ignoring case.
// An empty query returns the whole history.
func (s *TutorSession) SearchMessages(query string) []entities.Message {
	if query == "" {
		return s.Messages()
	}
	q := strings.ToLower(query)
	out := make([]entities.Message, 0)
	for _, m := range s.messages {
		if strings.Contains(strings.ToLower(m.Content), q) {
			out = append(out, m)
		}
	}
	return out
}

// End discards the session's state
func (s *TutorSession) End(now time.Time) error {
	if s.ended {
		return ErrSessionEnded
	}
	msgCount := len(s.messages)
	conceptCount := len(s.graph.Nodes)

	s.ended = true
	s.messages = nil
	s.graph = EmptyConceptGraph()
	s.touch(now)
	s.addEvent(events.NewSessionEnded(s.id, s.user.ID, msgCount, conceptCount, now, s.version))
	return nil
}

// IsExpired reports whether the session has been idle longer than timeout
func (s *TutorSession) IsExpired(timeout time.Duration, now time.Time) bool {
	return timeout > 0 && now.Sub(s.updatedAt) > timeout
}

// GetUncommittedEvents returns all uncommitted domain events
func (s *TutorSession) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (s *TutorSession) MarkEventsAsCommitted() {
	s.events = []events.DomainEvent{}
}

func (s *TutorSession) touch(now time.Time) {
	s.updatedAt = now
	s.version++
}

func (s *TutorSession) addEvent(event events.DomainEvent) {
	s.events = append(s.events, event)
}
