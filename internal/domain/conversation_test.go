package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, "user", string(RoleUser))
	assert.Equal(t, "assistant", string(RoleAssistant))
	assert.Equal(t, "system", string(RoleSystem))
}

func TestValidateConversationTurn(t *testing.T) {
	tests := []struct {
		name    string
		turn    ConversationTurn
		wantErr error
	}{
		{"user", NewConversationTurn(RoleUser, "what color is the sky"), nil},
		{"assistant", NewConversationTurn(RoleAssistant, "blue"), nil},
		{"system", NewConversationTurn(RoleSystem, "Error: timeout"), nil},
		{"invalid role", NewConversationTurn(Role("tool"), "x"), ErrInvalidRole},
		{"empty content", NewConversationTurn(RoleUser, "  "), ErrEmptyMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConversationTurn(tt.turn)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantErr, err)
			}
		})
	}
}
