package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"anonchat-service/internal/models"
	"anonchat-service/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetChat(ctx context.Context, userA, userB int, nameA, nameB string) (models.AnonymousChat, bool, error) {
	args := m.Called(ctx, userA, userB, nameA, nameB)
	var chat models.AnonymousChat
	if val := args.Get(0); val != nil {
		chat = val.(models.AnonymousChat)
	}
	return chat, args.Bool(1), args.Error(2)
}

func (m *ChatRepositoryMock) GetChatForUser(ctx context.Context, chatID, userID int) (models.AnonymousChat, error) {
	args := m.Called(ctx, chatID, userID)
	var chat models.AnonymousChat
	if val := args.Get(0); val != nil {
		chat = val.(models.AnonymousChat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID int, params repositories.ListChatsParams) ([]repositories.ChatListItem, error) {
	args := m.Called(ctx, userID, params)
	var items []repositories.ChatListItem
	if val := args.Get(0); val != nil {
		items = val.([]repositories.ChatListItem)
	}
	return items, args.Error(1)
}

func (m *ChatRepositoryMock) MarkRevealRequested(ctx context.Context, chatID, requesterID, threshold int) (bool, error) {
	args := m.Called(ctx, chatID, requesterID, threshold)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) MarkRevealAccepted(ctx context.Context, chatID, responderID int) (bool, error) {
	args := m.Called(ctx, chatID, responderID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) MarkRevealDeclined(ctx context.Context, chatID, responderID int) (bool, error) {
	args := m.Called(ctx, chatID, responderID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) DeleteChatForUser(ctx context.Context, chatID, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, chatID, senderID int, content, messageType string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, messageType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID int, params repositories.ListMessagesParams) ([]models.Message, error) {
	args := m.Called(ctx, chatID, params)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type ReadStateRepositoryMock struct {
	mock.Mock
}

func (m *ReadStateRepositoryMock) MarkRead(ctx context.Context, chatID, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, userIDs []int) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}
