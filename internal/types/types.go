package types

import (
	"time"
)

// RoomType identifies the conversation context a room is attached to.
type RoomType string

const (
	RoomTypePost   RoomType = "POST"
	RoomTypeStudy  RoomType = "STUDY"
	RoomTypeGroup  RoomType = "GROUP"
	RoomTypeDirect RoomType = "DIRECT"
)

func (rt RoomType) Valid() bool {
	switch rt {
	case RoomTypePost, RoomTypeStudy, RoomTypeGroup, RoomTypeDirect:
		return true
	}
	return false
}

// Participant is the durable membership of a user in a room. User
// profiles live in the identity service; only the id crosses this
// boundary.
type Participant struct {
	UserId        int        `json:"user_id"`
	LastReadSeqId int        `json:"last_read_seq_id"`
	IsPresent     bool       `json:"is_present"`
	JoinedAt      time.Time  `json:"joined_at,omitempty"`
	ExitedAt      *time.Time `json:"exited_at,omitempty"`
}

type Room struct {
	Id            int           `json:"id"`
	ExternalId    string        `json:"external_id"`
	RoomType      RoomType      `json:"room_type"`
	ReferenceId   int           `json:"reference_id,omitempty"`
	Title         string        `json:"title"`
	SeqId         int           `json:"seq_id"`
	Participants  []Participant `json:"participants,omitempty"`
	OnlineCount   int           `json:"online_count"`
	CreatedAt     time.Time     `json:"created_at,omitempty"`
	LastMessageAt time.Time     `json:"last_message_at,omitempty"`
}

type Message struct {
	SeqId        int       `json:"seq_id"`
	RoomId       string    `json:"room_id"`
	UserId       int       `json:"user_id"`
	Content      string    `json:"content"`
	AttachmentId int       `json:"attachment_id,omitempty"`
	Deleted      bool      `json:"deleted,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// UnreadRoom pairs a room with the caller's unread message count.
type UnreadRoom struct {
	RoomId      string `json:"room_id"`
	UnreadCount int    `json:"unread_count"`
}
