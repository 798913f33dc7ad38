package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"anonchat-service/internal/models"
	"anonchat-service/internal/observability"
	"anonchat-service/internal/repositories"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
)

// GetMessages returns a page of the chat ledger in ascending order.
// Sender identities follow the reveal state: pseudonyms while anonymous,
// real names once revealed.
func (h *AnonymousChatHandler) GetMessages(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	chat, err := h.chatRepo.GetChatForUser(c.Request.Context(), chatID, userID)
	if err != nil {
		respondChatLookupError(c, err)
		return
	}

	params := repositories.ListMessagesParams{Limit: defaultMessageLimit}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			params.Limit = n
		}
	}
	if params.Limit > maxMessageLimit {
		params.Limit = maxMessageLimit
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor"})
			return
		}
		params.Before = &before
	}

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), chatID, params)
	if err != nil {
		log.Printf("list messages failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}

	var profiles map[int]models.User
	if chat.IsRevealed() {
		profiles, err = h.partnerProfiles(c, []int{chat.User1ID, chat.User2ID})
		if err != nil {
			log.Printf("load sender profiles failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
			return
		}
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, msg := range msgs {
		view := models.MessageView{
			Message: msg,
			IsOwn:   msg.SenderID == userID,
		}
		if chat.IsRevealed() {
			if sender, ok := profiles[msg.SenderID]; ok {
				view.SenderName = sender.DisplayName
				view.SenderAvatarURL = sender.AvatarURL
			}
		} else {
			view.SenderName = chat.AnonymousNameOf(msg.SenderID)
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"items": views})
}

// PostMessage appends a text message to the ledger. Lifecycle message
// types are server-originated only and rejected here.
func (h *AnonymousChatHandler) PostMessage(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if _, err := h.chatRepo.GetChatForUser(c.Request.Context(), chatID, userID); err != nil {
		respondChatLookupError(c, err)
		return
	}

	var req struct {
		Content     string `json:"content"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_required"})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_required"})
		return
	}
	if req.MessageType != "" && req.MessageType != models.MessageTypeText {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message_type"})
		return
	}

	msg, err := h.messageRepo.AppendMessage(c.Request.Context(), chatID, userID, content, models.MessageTypeText)
	if err != nil {
		respondChatLookupError(c, err)
		return
	}

	observability.IncMessageStored(models.MessageTypeText)
	c.JSON(http.StatusCreated, models.MessageView{Message: msg, IsOwn: true})
}
