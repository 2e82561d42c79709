package database

import (
	"database/sql"
	"time"
)

type Room struct {
	Id            int
	ExternalId    string
	RoomType      string
	ReferenceId   sql.NullInt64
	Title         string
	SeqId         int
	DirectKey     sql.NullString
	CreatedAt     time.Time
	LastMessageAt time.Time
	Participants  []Participant
}

type Participant struct {
	Id            int
	RoomId        int
	AccountId     int
	LastReadSeqId sql.NullInt64
	Active        bool
	JoinedAt      time.Time
	ExitedAt      sql.NullTime
}

type Message struct {
	Id           int
	SeqId        int
	RoomId       int
	AccountId    int
	Content      string
	AttachmentId sql.NullInt64
	Deleted      bool
	SentAt       time.Time
}

type GetOrCreateRoomParams struct {
	RoomType    string
	ReferenceId int
	Title       string
	ExternalId  string
}

type CreateMessageParams struct {
	RoomId       int
	AccountId    int
	Content      string
	AttachmentId sql.NullInt64
	SentAt       time.Time
}

// UnreadCount reports how many messages in a room the account has not
// read yet.
type UnreadCount struct {
	RoomExternalId string
	Count          int
}
