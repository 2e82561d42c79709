package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) GetRoomWithParticipants(roomId int) (*Room, error) {
	args := m.Called(roomId)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) GetOrCreateRoom(params GetOrCreateRoomParams) (Room, bool, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Bool(1), args.Error(2)
}
func (m *MockChatRepository) GetOrCreateDirectRoom(accountA, accountB int, title, externalId string) (Room, bool, error) {
	args := m.Called(accountA, accountB, title, externalId)
	return args.Get(0).(Room), args.Bool(1), args.Error(2)
}
func (m *MockChatRepository) UpsertParticipant(accountId, roomId int) (Participant, error) {
	args := m.Called(accountId, roomId)
	return args.Get(0).(Participant), args.Error(1)
}
func (m *MockChatRepository) DeactivateParticipant(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockChatRepository) ParticipantIsActive(accountId, roomId int) bool {
	args := m.Called(accountId, roomId)
	return args.Bool(0)
}
func (m *MockChatRepository) GetParticipantsByRoomId(roomId int) ([]Participant, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Participant), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) SoftDeleteMessage(roomId, seqId, accountId int) (Message, error) {
	args := m.Called(roomId, seqId, accountId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) UpdateMessageContent(roomId, seqId, accountId int, content string) (Message, error) {
	args := m.Called(roomId, seqId, accountId, content)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessages(roomId, since, before, limit int) ([]Message, error) {
	args := m.Called(roomId, since, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) UpdateLastReadSeqId(accountId, roomId, seqId int) error {
	args := m.Called(accountId, roomId, seqId)
	return args.Error(0)
}
func (m *MockChatRepository) GetUnreadCount(accountId, roomId int) (int, error) {
	args := m.Called(accountId, roomId)
	return args.Int(0), args.Error(1)
}
func (m *MockChatRepository) ListUnreadCounts(accountId int) ([]UnreadCount, error) {
	args := m.Called(accountId)
	return args.Get(0).([]UnreadCount), args.Error(1)
}
