package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"anonchat-service/internal/mocks"
	"anonchat-service/internal/models"
	"anonchat-service/internal/repositories"
)

type handlerMocks struct {
	chatRepo    *mocks.ChatRepositoryMock
	messageRepo *mocks.MessageRepositoryMock
	readRepo    *mocks.ReadStateRepositoryMock
	userRepo    *mocks.UserRepositoryMock
}

func (m *handlerMocks) assertExpectations(t *testing.T) {
	m.chatRepo.AssertExpectations(t)
	m.messageRepo.AssertExpectations(t)
	m.readRepo.AssertExpectations(t)
	m.userRepo.AssertExpectations(t)
}

func newTestHandler() (*AnonymousChatHandler, *handlerMocks) {
	m := &handlerMocks{
		chatRepo:    new(mocks.ChatRepositoryMock),
		messageRepo: new(mocks.MessageRepositoryMock),
		readRepo:    new(mocks.ReadStateRepositoryMock),
		userRepo:    new(mocks.UserRepositoryMock),
	}
	h := NewAnonymousChatHandler(m.chatRepo, m.messageRepo, m.readRepo, m.userRepo, nil)
	h.generate = func() string { return "QuietOwl_7" }
	return h, m
}

func setupRouter(handler *AnonymousChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/anonymous/my", handler.ListMyChats)
	r.POST("/anonymous/start", handler.StartChat)
	r.GET("/anonymous/:chat_id", handler.GetChat)
	r.GET("/anonymous/:chat_id/messages", handler.GetMessages)
	r.POST("/anonymous/:chat_id/messages", handler.PostMessage)
	r.POST("/anonymous/:chat_id/reveal", handler.RequestReveal)
	r.POST("/anonymous/:chat_id/reveal/respond", handler.RespondReveal)
	r.POST("/anonymous/:chat_id/read", handler.MarkRead)
	r.DELETE("/anonymous/:chat_id", handler.DeleteChat)
	return r
}

func anonymousChatFixture(id int) models.AnonymousChat {
	return models.AnonymousChat{
		ID:                 id,
		User1ID:            1,
		User2ID:            2,
		User1AnonymousName: "CuriousFox_12",
		User2AnonymousName: "GentleOwl_34",
		State:              models.StateAnonymous,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestListMyChatsSuccess(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	chat := anonymousChatFixture(3)
	content := "hello"
	msgType := models.MessageTypeText
	msgID, senderID := 8, 2
	at := time.Now()
	m.chatRepo.On("ListChats", mock.Anything, 1, repositories.ListChatsParams{Limit: 20}).
		Return([]repositories.ChatListItem{{
			AnonymousChat:       chat,
			UnreadCount:         4,
			LastMessageID:       &msgID,
			LastMessageSenderID: &senderID,
			LastMessageContent:  &content,
			LastMessageType:     &msgType,
			LastMessageAt:       &at,
		}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/anonymous/my", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(4), item["unread_count"])
	assert.Equal(t, "GentleOwl_34", item["partner_anonymous_name"])
	assert.Equal(t, false, item["is_revealed"])
	assert.NotNil(t, item["last_message"])
	m.assertExpectations(t)
}

func TestListMyChatsRevealedPartnerProfile(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	chat := anonymousChatFixture(3)
	chat.State = models.StateNormal
	m.chatRepo.On("ListChats", mock.Anything, 1, mock.Anything).
		Return([]repositories.ChatListItem{{AnonymousChat: chat}}, nil).Once()
	m.userRepo.On("BulkUsers", mock.Anything, []int{2}).
		Return([]models.User{{ID: 2, DisplayName: "Bo", AvatarURL: "http://a/b.png"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/anonymous/my", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	item := decodeBody(t, rec)["items"].([]any)[0].(map[string]any)
	assert.Equal(t, true, item["is_revealed"])
	assert.Equal(t, "Bo", item["partner_display_name"])
	assert.Equal(t, "http://a/b.png", item["partner_avatar_url"])
	m.assertExpectations(t)
}

func TestListMyChatsStateFilterAndLimitClamp(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.chatRepo.On("ListChats", mock.Anything, 1,
		repositories.ListChatsParams{State: models.StateNormal, Limit: 100}).
		Return([]repositories.ChatListItem{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/anonymous/my?state=normal&limit=500", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.assertExpectations(t)
}

func TestListMyChatsInvalidCursor(t *testing.T) {
	handler, _ := newTestHandler()
	router := setupRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/anonymous/my?cursor=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_cursor", decodeBody(t, rec)["error"])
}

func TestListMyChatsRepoError(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.chatRepo.On("ListChats", mock.Anything, 1, mock.Anything).
		Return(([]repositories.ChatListItem)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/anonymous/my", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "database_error", decodeBody(t, rec)["error"])
	m.assertExpectations(t)
}

func TestStartChatSuccess(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	chat := anonymousChatFixture(10)
	m.userRepo.On("GetUser", mock.Anything, 2).
		Return(models.User{ID: 2, DisplayName: "Dana"}, nil).Once()
	m.chatRepo.On("CreateOrGetChat", mock.Anything, 1, 2, "QuietOwl_7", "QuietOwl_7").
		Return(chat, true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/anonymous/start", bytes.NewBufferString(`{"target_user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(10), body["id"])
	assert.Equal(t, models.StateAnonymous, body["state"])
	assert.Equal(t, float64(0), body["message_count"])
	assert.Equal(t, "CuriousFox_12", body["my_anonymous_name"])
	m.assertExpectations(t)
}

func TestStartChatReturnsExisting(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	chat := anonymousChatFixture(10)
	m.userRepo.On("GetUser", mock.Anything, 2).
		Return(models.User{ID: 2, DisplayName: "Dana"}, nil).Once()
	m.chatRepo.On("CreateOrGetChat", mock.Anything, 1, 2, mock.Anything, mock.Anything).
		Return(chat, false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/anonymous/start", bytes.NewBufferString(`{"target_user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(10), decodeBody(t, rec)["id"])
	m.assertExpectations(t)
}

func TestStartChatMissingTarget(t *testing.T) {
	handler, _ := newTestHandler()
	router := setupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/anonymous/start", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "target_user_id_required", decodeBody(t, rec)["error"])
}

func TestStartChatUnknownTarget(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.userRepo.On("GetUser", mock.Anything, 99).
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/anonymous/start", bytes.NewBufferString(`{"target_user_id":99}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "target_user_not_found", decodeBody(t, rec)["error"])
	m.assertExpectations(t)
}

func TestStartChatWithSelf(t *testing.T) {
	handler, _ := newTestHandler()
	router := setupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/anonymous/start", bytes.NewBufferString(`{"target_user_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot_chat_with_self", decodeBody(t, rec)["error"])
}

func TestGetChatNonParticipant(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.chatRepo.On("GetChatForUser", mock.Anything, 5, 1).
		Return(models.AnonymousChat{}, repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/anonymous/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "chat_not_found", decodeBody(t, rec)["error"])
	m.assertExpectations(t)
}

func TestGetChatRevealedShowsPartnerIdentity(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	chat := anonymousChatFixture(5)
	chat.State = models.StateNormal
	m.chatRepo.On("GetChatForUser", mock.Anything, 5, 1).Return(chat, nil).Once()
	m.userRepo.On("BulkUsers", mock.Anything, []int{2}).
		Return([]models.User{{ID: 2, DisplayName: "Bo"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/anonymous/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["is_revealed"])
	assert.Equal(t, "Bo", body["partner_display_name"])
	m.assertExpectations(t)
}

func TestGetChatInvalidID(t *testing.T) {
	handler, _ := newTestHandler()
	router := setupRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/anonymous/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "chat_not_found", decodeBody(t, rec)["error"])
}

func TestMarkReadSuccess(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.chatRepo.On("GetChatForUser", mock.Anything, 5, 1).Return(anonymousChatFixture(5), nil).Once()
	m.readRepo.On("MarkRead", mock.Anything, 5, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/anonymous/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
	m.assertExpectations(t)
}

func TestMarkReadNonParticipant(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.chatRepo.On("GetChatForUser", mock.Anything, 5, 1).
		Return(models.AnonymousChat{}, repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/anonymous/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "chat_not_found", decodeBody(t, rec)["error"])
	m.assertExpectations(t)
}

func TestDeleteChatSuccess(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.chatRepo.On("DeleteChatForUser", mock.Anything, 5, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/anonymous/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
	m.assertExpectations(t)
}

func TestDeleteChatNonParticipant(t *testing.T) {
	handler, m := newTestHandler()
	router := setupRouter(handler)

	m.chatRepo.On("DeleteChatForUser", mock.Anything, 5, 1).Return(repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/anonymous/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "chat_not_found", decodeBody(t, rec)["error"])
	m.assertExpectations(t)
}
