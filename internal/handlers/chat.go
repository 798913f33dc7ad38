package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"anonchat-service/internal/anonname"
	"anonchat-service/internal/models"
	"anonchat-service/internal/repositories"
	"anonchat-service/internal/telemetry"
)

const (
	defaultChatListLimit = 20
	maxChatListLimit     = 100
)

// AnonymousChatHandler is the single authorized entry point for the
// anonymous chat operation set. Every chat-scoped endpoint resolves the
// chat through a participant-scoped query, so non-participants always see
// chat_not_found.
type AnonymousChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	readRepo    repositories.ReadStateRepository
	userRepo    repositories.UserRepository
	emitter     *telemetry.AuditEmitter
	generate    func() string
}

// NewAnonymousChatHandler builds an AnonymousChatHandler.
func NewAnonymousChatHandler(
	chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository,
	readRepo repositories.ReadStateRepository,
	userRepo repositories.UserRepository,
	emitter *telemetry.AuditEmitter,
) *AnonymousChatHandler {
	return &AnonymousChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		readRepo:    readRepo,
		userRepo:    userRepo,
		emitter:     emitter,
		generate:    anonname.Generate,
	}
}

// ListMyChats returns the caller's chats, newest activity first.
func (h *AnonymousChatHandler) ListMyChats(c *gin.Context) {
	userID := c.GetInt("userID")

	params := repositories.ListChatsParams{Limit: defaultChatListLimit}
	if state := c.Query("state"); state != "" {
		params.State = state
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			params.Limit = n
		}
	}
	if params.Limit > maxChatListLimit {
		params.Limit = maxChatListLimit
	}
	if raw := c.Query("cursor"); raw != "" {
		cursor, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor"})
			return
		}
		params.Cursor = &cursor
	}

	items, err := h.chatRepo.ListChats(c.Request.Context(), userID, params)
	if err != nil {
		log.Printf("list chats failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}

	// One profile lookup covers every revealed partner in the page.
	partnerIDs := make([]int, 0, len(items))
	for _, item := range items {
		if item.IsRevealed() {
			partnerIDs = append(partnerIDs, item.PartnerID(userID))
		}
	}
	profiles, err := h.partnerProfiles(c, partnerIDs)
	if err != nil {
		log.Printf("load partner profiles failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}

	summaries := make([]models.ChatSummary, 0, len(items))
	for _, item := range items {
		summary := models.ChatSummary{
			ChatView:    buildChatView(item.AnonymousChat, userID, profiles),
			UnreadCount: item.UnreadCount,
		}
		if item.LastMessageID != nil {
			summary.LastMessage = &models.Message{
				ID:          *item.LastMessageID,
				ChatID:      item.ID,
				SenderID:    *item.LastMessageSenderID,
				Content:     *item.LastMessageContent,
				MessageType: *item.LastMessageType,
				CreatedAt:   *item.LastMessageAt,
			}
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"items": summaries})
}

// StartChat returns the chat with the target user, creating it with fresh
// pseudonyms when the pair has never chatted.
func (h *AnonymousChatHandler) StartChat(c *gin.Context) {
	var req struct {
		TargetUserID int `json:"target_user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetUserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_user_id_required"})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.TargetUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot_chat_with_self"})
		return
	}

	if _, err := h.userRepo.GetUser(c.Request.Context(), req.TargetUserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "target_user_not_found"})
			return
		}
		log.Printf("lookup target user failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}

	chat, created, err := h.chatRepo.CreateOrGetChat(c.Request.Context(), userID, req.TargetUserID, h.generate(), h.generate())
	if err != nil {
		log.Printf("start chat failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}

	if created {
		h.emitter.EmitChatEvent(c.Request.Context(), telemetry.EventChatStarted, chat.ID, chat.State, requestIDFromContext(c), &userID)
	}

	view, err := h.chatViewFor(c, chat, userID)
	if err != nil {
		log.Printf("build chat view failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetChat returns the caller-relative detail view of one chat.
func (h *AnonymousChatHandler) GetChat(c *gin.Context) {
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

	view, err := h.chatViewFor(c, chat, userID)
	if err != nil {
		log.Printf("build chat view failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// MarkRead moves the caller's read bookmark to now.
func (h *AnonymousChatHandler) MarkRead(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if _, err := h.chatRepo.GetChatForUser(c.Request.Context(), chatID, userID); err != nil {
		respondChatLookupError(c, err)
		return
	}

	if err := h.readRepo.MarkRead(c.Request.Context(), chatID, userID); err != nil {
		log.Printf("mark read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteChat removes the chat with all messages and read states.
func (h *AnonymousChatHandler) DeleteChat(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if err := h.chatRepo.DeleteChatForUser(c.Request.Context(), chatID, userID); err != nil {
		respondChatLookupError(c, err)
		return
	}

	h.emitter.EmitChatEvent(c.Request.Context(), telemetry.EventChatDeleted, chatID, "", requestIDFromContext(c), &userID)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// chatViewFor builds the caller-relative view, resolving the partner's
// real profile only once the chat is revealed.
func (h *AnonymousChatHandler) chatViewFor(c *gin.Context, chat models.AnonymousChat, userID int) (models.ChatView, error) {
	var partnerIDs []int
	if chat.IsRevealed() {
		partnerIDs = []int{chat.PartnerID(userID)}
	}
	profiles, err := h.partnerProfiles(c, partnerIDs)
	if err != nil {
		return models.ChatView{}, err
	}
	return buildChatView(chat, userID, profiles), nil
}

func (h *AnonymousChatHandler) partnerProfiles(c *gin.Context, userIDs []int) (map[int]models.User, error) {
	profiles := map[int]models.User{}
	if len(userIDs) == 0 {
		return profiles, nil
	}
	users, err := h.userRepo.BulkUsers(c.Request.Context(), userIDs)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		profiles[u.ID] = u
	}
	return profiles, nil
}

func buildChatView(chat models.AnonymousChat, userID int, profiles map[int]models.User) models.ChatView {
	partnerID := chat.PartnerID(userID)
	view := models.ChatView{
		AnonymousChat:        chat,
		MyAnonymousName:      chat.AnonymousNameOf(userID),
		PartnerID:            partnerID,
		PartnerAnonymousName: chat.AnonymousNameOf(partnerID),
		IsRevealed:           chat.IsRevealed(),
	}
	if view.IsRevealed {
		if partner, ok := profiles[partnerID]; ok {
			view.PartnerDisplayName = partner.DisplayName
			view.PartnerAvatarURL = partner.AvatarURL
		}
	}
	return view
}

// parseChatID reads the path parameter. Malformed ids report
// chat_not_found so the response never distinguishes a bad id from a chat
// the caller cannot see.
func parseChatID(c *gin.Context) (int, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil || chatID <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat_not_found"})
		return 0, false
	}
	return chatID, true
}

func respondChatLookupError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrChatNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat_not_found"})
		return
	}
	log.Printf("chat lookup failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error"})
}
