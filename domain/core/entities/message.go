package entities

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who authored a turn
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// MessageType describes how a turn should be displayed
type MessageType string

const (
	MessageTypeText            MessageType = "text"
	MessageTypeImage           MessageType = "image"
	MessageTypeVoiceTranscript MessageType = "voice_transcript"
)

// Message is one turn of a tutoring conversation
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
	Image     string      `json:"image,omitempty"`
	Type      MessageType `json:"type,omitempty"`
}

// NewMessage creates a text message stamped at now
func NewMessage(role MessageRole, content string, now time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: now.UnixMilli(),
		Type:      MessageTypeText,
	}
}

// NewImageMessage creates a model message carrying an image data URL
func NewImageMessage(content, image string, now time.Time) Message {
	msg := NewMessage(RoleModel, content, now)
	msg.Image = image
	msg.Type = MessageTypeImage
	return msg
}
