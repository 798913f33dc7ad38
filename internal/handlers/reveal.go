package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"anonchat-service/internal/models"
	"anonchat-service/internal/observability"
	"anonchat-service/internal/reveal"
	"anonchat-service/internal/telemetry"
)

// RequestReveal asks the partner to expose both identities. Only allowed
// from the anonymous state once the message threshold is met; the
// repository re-checks both guards in the update itself.
func (h *AnonymousChatHandler) RequestReveal(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	ctx, span := otel.Tracer("anonchat-service/reveal").Start(c.Request.Context(), "reveal.request")
	defer span.End()

	chat, err := h.chatRepo.GetChatForUser(ctx, chatID, userID)
	if err != nil {
		respondChatLookupError(c, err)
		return
	}

	if err := reveal.CanRequest(chat); err != nil {
		respondRevealGuardError(c, err)
		return
	}

	ok, err = h.chatRepo.MarkRevealRequested(ctx, chatID, userID, reveal.MessageThreshold)
	if err != nil {
		log.Printf("mark reveal requested failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}
	if !ok {
		// Lost a race against a concurrent transition.
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_not_anonymous"})
		return
	}

	h.appendSystemMessage(c, chatID, userID, models.MessageTypeRevealRequest)
	observability.IncRevealTransition("requested")
	h.emitter.EmitChatEvent(ctx, telemetry.EventRevealRequested, chatID, models.StateRevealPending, requestIDFromContext(c), &userID)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RespondReveal accepts or declines the pending request. Accepting is
// permanent; declining returns the chat to anonymous without touching the
// message counter, so a later request stays possible.
func (h *AnonymousChatHandler) RespondReveal(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Accept *bool `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Accept == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accept_required"})
		return
	}
	accept := *req.Accept

	ctx, span := otel.Tracer("anonchat-service/reveal").Start(c.Request.Context(), "reveal.respond")
	defer span.End()

	chat, err := h.chatRepo.GetChatForUser(ctx, chatID, userID)
	if err != nil {
		respondChatLookupError(c, err)
		return
	}

	if err := reveal.CanRespond(chat, userID); err != nil {
		respondRevealGuardError(c, err)
		return
	}

	var applied bool
	if accept {
		applied, err = h.chatRepo.MarkRevealAccepted(ctx, chatID, userID)
	} else {
		applied, err = h.chatRepo.MarkRevealDeclined(ctx, chatID, userID)
	}
	if err != nil {
		log.Printf("mark reveal response failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}
	if !applied {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_pending_reveal"})
		return
	}

	if accept {
		h.appendSystemMessage(c, chatID, userID, models.MessageTypeRevealAccepted)
		observability.IncRevealTransition("accepted")
		h.emitter.EmitChatEvent(ctx, telemetry.EventRevealAccepted, chatID, models.StateNormal, requestIDFromContext(c), &userID)
	} else {
		h.appendSystemMessage(c, chatID, userID, models.MessageTypeRevealDeclined)
		observability.IncRevealTransition("declined")
		h.emitter.EmitChatEvent(ctx, telemetry.EventRevealDeclined, chatID, models.StateAnonymous, requestIDFromContext(c), &userID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "accepted": accept})
}

// appendSystemMessage writes the lifecycle ledger entry for a transition.
// The triggering user is recorded as the sender for audit purposes. The
// transition has already committed when this runs, so a failed append is
// retried once and then logged; it never undoes the transition.
func (h *AnonymousChatHandler) appendSystemMessage(c *gin.Context, chatID, userID int, messageType string) {
	content := reveal.SystemContent(messageType)
	_, err := h.messageRepo.AppendMessage(c.Request.Context(), chatID, userID, content, messageType)
	if err != nil {
		_, err = h.messageRepo.AppendMessage(c.Request.Context(), chatID, userID, content, messageType)
	}
	if err != nil {
		log.Printf("append system message failed: type=%s chat=%d: %v", messageType, chatID, err)
		return
	}
	observability.IncMessageStored(messageType)
}

func respondRevealGuardError(c *gin.Context, err error) {
	var insufficient *reveal.InsufficientMessagesError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "not_enough_messages",
			"required": insufficient.Required,
			"current":  insufficient.Current,
		})
	case errors.Is(err, reveal.ErrChatNotAnonymous):
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_not_anonymous"})
	case errors.Is(err, reveal.ErrNoPendingReveal):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_pending_reveal"})
	case errors.Is(err, reveal.ErrCannotRespondToOwnRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot_respond_to_own_request"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
	}
}
