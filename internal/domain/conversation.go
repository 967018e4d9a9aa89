package domain

import (
	"strings"
	"time"
)

// Role identifies who produced a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationTurn is one immutable message in the dialogue history
type ConversationTurn struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewConversationTurn creates a turn that has not been appended to a log yet
func NewConversationTurn(role Role, content string) ConversationTurn {
	return ConversationTurn{Role: role, Content: content}
}

// ValidateConversationTurn validates a turn before it is appended
func ValidateConversationTurn(t ConversationTurn) error {
	if !IsValidRole(t.Role) {
		return ErrInvalidRole
	}
	if strings.TrimSpace(t.Content) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// IsValidRole checks if a Role is one of the known roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
