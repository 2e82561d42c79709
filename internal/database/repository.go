package database

import "context"

type ChatRepository interface {
	Ping() error
	GetRoomByExternalId(externalId string) (Room, error)
	GetRoomWithParticipants(roomId int) (*Room, error)
	GetOrCreateRoom(params GetOrCreateRoomParams) (Room, bool, error)
	GetOrCreateDirectRoom(accountA, accountB int, title, externalId string) (Room, bool, error)
	UpsertParticipant(accountId, roomId int) (Participant, error)
	DeactivateParticipant(accountId, roomId int) error
	ParticipantIsActive(accountId, roomId int) bool
	GetParticipantsByRoomId(roomId int) ([]Participant, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	SoftDeleteMessage(roomId, seqId, accountId int) (Message, error)
	UpdateMessageContent(roomId, seqId, accountId int, content string) (Message, error)
	GetMessages(roomId, since, before, limit int) ([]Message, error)
	UpdateLastReadSeqId(accountId, roomId, seqId int) error
	GetUnreadCount(accountId, roomId int) (int, error)
	ListUnreadCounts(accountId int) ([]UnreadCount, error)
}
