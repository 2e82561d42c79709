package server

import (
	"net/http"
	"time"

	"github.com/smartcampus/chat-server/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Publish *Publish `json:"publish,omitempty"`
	Join    *Join    `json:"join,omitempty"`
	Leave   *Leave   `json:"leave,omitempty"`
	Read    *Read    `json:"read,omitempty"`
	UserId  int      `json:"-"`
	client  *Client  `json:"-"`
}

type Publish struct {
	RoomId       string `json:"room_id"`
	Content      string `json:"content,omitempty"`
	AttachmentId int    `json:"attachment_id,omitempty"`
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	// Unsubscribe drops the durable membership (soft exit), not just
	// the live session.
	Unsubscribe bool   `json:"unsubscribe,omitempty"`
	RoomId      string `json:"room_id"`
}

type Read struct {
	RoomId string `json:"room_id"`
	SeqId  int    `json:"seq_id"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	SkipClient   *Client        `json:"-"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type Notification struct {
	Presence       *Presence       `json:"presence,omitempty"`
	MessageDeleted *MessageDeleted `json:"message_deleted,omitempty"`
	MessageUpdated *MessageUpdated `json:"message_updated,omitempty"`
}

type Presence struct {
	Present     bool   `json:"present"`
	UserId      int    `json:"user_id"`
	RoomId      string `json:"room_id"`
	OnlineCount int    `json:"online_count"`
}

// MessageDeleted announces a tombstone: the message keeps its seq id
// but its content is gone.
type MessageDeleted struct {
	RoomId string `json:"room_id"`
	SeqId  int    `json:"seq_id"`
}

// MessageUpdated announces an edit. The message keeps its seq id and
// carries the replacement text.
type MessageUpdated struct {
	RoomId  string `json:"room_id"`
	SeqId   int    `json:"seq_id"`
	Content string `json:"content"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
			Data:         data,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrNotAMember(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "not a member of this room",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

// ErrServiceUnavailable marks a retryable failure: the request was not
// applied and the client may resend it.
func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int, reason string) *ServerMessage {
	if reason == "" {
		reason = "invalid message format"
	}

	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        reason,
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
