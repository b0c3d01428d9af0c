package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/prompt"
)

const (
	MaxMessageLength = 4000
	MaxHistoryTurns  = 50
)

// Request is the body of a chat call.
type Request struct {
	Message             string        `json:"message"`
	ConversationHistory []prompt.Turn `json:"conversationHistory"`
}

// Validate rejects requests that must never reach the model.
func (r *Request) Validate() error {
	msg := strings.TrimSpace(r.Message)
	switch {
	case msg == "":
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	case utf8.RuneCountInString(msg) > MaxMessageLength:
		return fmt.Errorf("%w: message must be at most %d characters", ErrInvalidRequest, MaxMessageLength)
	case len(r.ConversationHistory) > MaxHistoryTurns:
		return fmt.Errorf("%w: conversationHistory must have at most %d entries", ErrInvalidRequest, MaxHistoryTurns)
	}

	for i, t := range r.ConversationHistory {
		if !llm.ValidRole(t.Role) {
			return fmt.Errorf("%w: conversationHistory[%d].role must be %q or %q", ErrInvalidRequest, i, llm.RoleUser, llm.RoleAssistant)
		}
	}
	return nil
}
