// Package reveal holds the pure transition rules for exposing real
// identities in an anonymous chat: anonymous -> reveal_pending -> normal,
// with decline returning to anonymous. Repositories enforce the same
// guards again with conditional updates; this package decides which
// domain error a refused transition maps to.
package reveal

import (
	"errors"
	"fmt"

	"anonchat-service/internal/models"
)

// MessageThreshold is the minimum ledger length (system messages included)
// before either side may request a reveal.
const MessageThreshold = 15

var (
	ErrChatNotAnonymous          = errors.New("chat is not anonymous")
	ErrNoPendingReveal           = errors.New("no pending reveal request")
	ErrCannotRespondToOwnRequest = errors.New("cannot respond to own reveal request")
)

// InsufficientMessagesError reports how far a chat is from reveal
// eligibility so clients can show progress.
type InsufficientMessagesError struct {
	Required int
	Current  int
}

func (e *InsufficientMessagesError) Error() string {
	return fmt.Sprintf("not enough messages for reveal: %d of %d", e.Current, e.Required)
}

// CanRequest validates a reveal request against the current chat state.
func CanRequest(chat models.AnonymousChat) error {
	if chat.State != models.StateAnonymous {
		return ErrChatNotAnonymous
	}
	if chat.MessageCount < MessageThreshold {
		return &InsufficientMessagesError{Required: MessageThreshold, Current: chat.MessageCount}
	}
	return nil
}

// CanRespond validates an accept/decline against the pending request.
// The requester is never allowed to answer their own request.
func CanRespond(chat models.AnonymousChat, responderID int) error {
	if chat.State != models.StateRevealPending {
		return ErrNoPendingReveal
	}
	if chat.RevealRequestedBy != nil && *chat.RevealRequestedBy == responderID {
		return ErrCannotRespondToOwnRequest
	}
	return nil
}

// SystemContent returns the fixed ledger text written for a lifecycle
// message type.
func SystemContent(messageType string) string {
	switch messageType {
	case models.MessageTypeRevealRequest:
		return "One of you asked to reveal identities."
	case models.MessageTypeRevealAccepted:
		return "Identities revealed. You can now see each other."
	case models.MessageTypeRevealDeclined:
		return "The reveal request was declined. The chat stays anonymous."
	default:
		return "Anonymous chat started."
	}
}
