package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/smartcampus/chat-server/internal/database"
	"github.com/smartcampus/chat-server/internal/server"
	"github.com/smartcampus/chat-server/internal/types"
)

type ResolveRoomRequest struct {
	RoomType    string `json:"room_type"`
	ReferenceId int    `json:"reference_id"`
	Title       string `json:"title"`
}

type ResolveDirectRoomRequest struct {
	UserId int    `json:"user_id"`
	Title  string `json:"title"`
}

type UpdateMessageRequest struct {
	Content string `json:"content"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) roomView(dbRoom database.Room) types.Room {
	room := types.Room{
		Id:            dbRoom.Id,
		ExternalId:    dbRoom.ExternalId,
		RoomType:      types.RoomType(dbRoom.RoomType),
		ReferenceId:   int(dbRoom.ReferenceId.Int64),
		Title:         dbRoom.Title,
		SeqId:         dbRoom.SeqId,
		OnlineCount:   s.presence.Count(dbRoom.ExternalId),
		CreatedAt:     dbRoom.CreatedAt,
		LastMessageAt: dbRoom.LastMessageAt,
	}

	for _, p := range dbRoom.Participants {
		room.Participants = append(room.Participants, types.Participant{
			UserId:        p.AccountId,
			LastReadSeqId: int(p.LastReadSeqId.Int64),
			IsPresent:     s.presence.Contains(dbRoom.ExternalId, p.AccountId),
			JoinedAt:      p.JoinedAt,
		})
	}

	return room
}

// resolveRoom finds the room bound to an application object, creating
// it on first use. Concurrent callers converge on the same room.
func (s *ChatApp) resolveRoom(w http.ResponseWriter, r *http.Request) {
	var req ResolveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomType := types.RoomType(req.RoomType)
	if !roomType.Valid() {
		errResp := NewInvalidRoomContextError("unknown room type")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if roomType == types.RoomTypeDirect {
		errResp := NewInvalidRoomContextError("direct rooms use /api/rooms/direct")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ReferenceId <= 0 {
		errResp := NewInvalidRoomContextError("missing reference id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.GetOrCreateRoomParams{
		RoomType:    string(roomType),
		ReferenceId: req.ReferenceId,
		Title:       req.Title,
		ExternalId:  sid,
	}

	room, created, err := s.db.GetOrCreateRoom(params)
	if err != nil {
		s.log.Println("get or create room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}

	s.writeJson(w, statusCode, s.roomView(room))
}

func (s *ChatApp) resolveDirectRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ResolveDirectRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.UserId <= 0 {
		errResp := NewInvalidRoomContextError("missing peer user id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.UserId == userId {
		errResp := NewInvalidRoomContextError("cannot open a direct room with yourself")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, created, err := s.db.GetOrCreateDirectRoom(userId, req.UserId, req.Title, sid)
	if err != nil {
		s.log.Println("get or create direct room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}

	s.writeJson(w, statusCode, s.roomView(room))
}

func (s *ChatApp) getRoom(w http.ResponseWriter, r *http.Request) {
	externalId := r.URL.Query().Get("id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	fullRoom, err := s.db.GetRoomWithParticipants(room.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, s.roomView(*fullRoom))
}

func (s *ChatApp) getUnreadCounts(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// a room_id narrows the response to that room's count
	if externalId := r.URL.Query().Get("room_id"); externalId != "" {
		room, err := s.db.GetRoomByExternalId(externalId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if !s.db.ParticipantIsActive(userId, room.Id) {
			errResp := NewForbiddenError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		count, err := s.db.GetUnreadCount(userId, room.Id)
		if err != nil {
			s.log.Println("get unread count:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, []types.UnreadRoom{{
			RoomId:      room.ExternalId,
			UnreadCount: count,
		}})
		return
	}

	counts, err := s.db.ListUnreadCounts(userId)
	if err != nil {
		s.log.Println("list unread counts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	unread := make([]types.UnreadRoom, 0, len(counts))
	for _, c := range counts {
		unread = append(unread, types.UnreadRoom{
			RoomId:      c.RoomExternalId,
			UnreadCount: c.Count,
		})
	}

	s.writeJson(w, http.StatusOK, unread)
}

func (s *ChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("room_id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.ParticipantIsActive(userId, room.Id) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var before, after, limit int

	beforeStr := r.URL.Query().Get("before")
	if beforeStr != "" {
		before, err = strconv.Atoi(beforeStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	afterStr := r.URL.Query().Get("after")
	if afterStr != "" {
		after, err = strconv.Atoi(afterStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	messages, err := s.db.GetMessages(room.Id, after, before, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomMessages := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		roomMessages = append(roomMessages, types.Message{
			SeqId:        msg.SeqId,
			RoomId:       room.ExternalId,
			UserId:       msg.AccountId,
			Content:      msg.Content,
			AttachmentId: int(msg.AttachmentId.Int64),
			Deleted:      msg.Deleted,
			Timestamp:    msg.SentAt,
		})
	}

	s.writeJson(w, http.StatusOK, roomMessages)
}

// deleteMessage tombstones a message. Only the sender may delete, and
// connected members in the room are notified over their sockets.
func (s *ChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("room_id")
	seqIdStr := r.URL.Query().Get("seq_id")
	if externalId == "" || seqIdStr == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	seqId, err := strconv.Atoi(seqIdStr)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.SoftDeleteMessage(room.Id, seqId, userId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewForbiddenError()
		} else {
			s.log.Println("soft delete message:", err)
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.cs.BroadcastDelete(r.Context(), room.ExternalId, seqId); err != nil {
		s.log.Println("broadcast delete:", err)
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

// updateMessage replaces the text of a message. Only the sender may
// edit, file messages and tombstones are immutable, and connected
// members in the room are notified over their sockets.
func (s *ChatApp) updateMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("room_id")
	seqIdStr := r.URL.Query().Get("seq_id")
	if externalId == "" || seqIdStr == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	seqId, err := strconv.Atoi(seqIdStr)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.UpdateMessageContent(room.Id, seqId, userId, req.Content)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewForbiddenError()
		} else {
			s.log.Println("update message content:", err)
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.cs.BroadcastUpdate(r.Context(), room.ExternalId, seqId, msg.Content); err != nil {
		s.log.Println("broadcast update:", err)
	}

	s.writeJson(w, http.StatusOK, types.Message{
		SeqId:     msg.SeqId,
		RoomId:    room.ExternalId,
		UserId:    msg.AccountId,
		Content:   msg.Content,
		Timestamp: msg.SentAt,
	})
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(userId, conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
