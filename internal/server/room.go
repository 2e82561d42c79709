package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/smartcampus/chat-server/internal/attachments"
	"github.com/smartcampus/chat-server/internal/database"
	"github.com/smartcampus/chat-server/internal/stats"
	"github.com/smartcampus/chat-server/internal/types"
)

const (
	// idleRoomTimeout unloads a room's goroutine once its last
	// connection is gone. Durable state is unaffected.
	idleRoomTimeout = time.Second * 30
	// persistTimeout bounds the VALIDATED -> PERSISTED transition. A
	// send that cannot be stored in time is rejected as retryable.
	persistTimeout = time.Second * 5
)

type exitReq struct {
	done chan struct{}
}

type Room struct {
	id         int
	externalId string
	roomType   string
	cs         *ChatServer
	joinChan   chan *ClientMessage
	leaveChan  chan *ClientMessage
	// clientMsgChan carries publish and read requests; one goroutine
	// drains it, which is what gives per-room persist-then-publish
	// ordering.
	clientMsgChan chan *ClientMessage
	deleteChan    chan tombstoneReq
	editChan      chan updateReq
	clients       map[*Client]struct{}
	userMap       map[int]map[*Client]struct{}
	clientLock    sync.RWMutex
	log           *log.Logger
	// killTimer unloads the room when it has been empty for a while
	killTimer *time.Timer
	exit      chan exitReq
}

func newRoom(cs *ChatServer, dbRoom database.Room) *Room {
	return &Room{
		id:            dbRoom.Id,
		externalId:    dbRoom.ExternalId,
		roomType:      dbRoom.RoomType,
		cs:            cs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		deleteChan:    make(chan tombstoneReq, 64),
		editChan:      make(chan updateReq, 64),
		clients:       make(map[*Client]struct{}),
		userMap:       make(map[int]map[*Client]struct{}),
		log:           cs.log,
		exit:          make(chan exitReq),
	}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.externalId)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.clientMsgChan:
			if msg.Publish != nil {
				r.persistAndPublish(msg)
			} else if msg.Read != nil {
				r.handleRead(msg)
			}
		case req := <-r.deleteChan:
			r.handleTombstone(req)
		case req := <-r.editChan:
			r.handleEdit(req)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q idle, requesting unload", r.externalId)
	select {
	case r.cs.unloadRoomChan <- unloadRoomRequest{roomId: r.externalId}:
	default:
		// try again on the next cycle
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.externalId)

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.externalId)
	}
	for userId := range r.userMap {
		r.cs.presence.Leave(r.externalId, userId)
	}
	r.clientLock.Unlock()

	if e.done != nil {
		close(e.done)
	}
}

func (r *Room) handleJoin(join *ClientMessage) {
	// stop the kill timer since we have a new client
	r.killTimer.Stop()

	c := join.client
	// creates the membership row on first join, reactivates it on
	// rejoin; never duplicates
	if _, err := r.cs.db.UpsertParticipant(c.userId, r.id); err != nil {
		if len(r.clients) == 0 {
			r.killTimer.Reset(idleRoomTimeout)
		}
		r.log.Println("UpsertParticipant:", err)
		c.queueMessage(ErrInternalError(join.Id))
		return
	}

	firstSession := r.addClient(c)
	if firstSession {
		r.cs.presence.Join(r.externalId, c.userId)
	}

	dbRoom, err := r.cs.db.GetRoomWithParticipants(r.id)
	if err != nil {
		r.log.Println("GetRoomWithParticipants:", err)
		c.queueMessage(ErrInternalError(join.Id))
		return
	}

	roomInfo := types.Room{
		Id:          dbRoom.Id,
		ExternalId:  dbRoom.ExternalId,
		RoomType:    types.RoomType(dbRoom.RoomType),
		ReferenceId: int(dbRoom.ReferenceId.Int64),
		Title:       dbRoom.Title,
		SeqId:       dbRoom.SeqId,
		OnlineCount: r.cs.presence.Count(r.externalId),
		Participants: func() []types.Participant {
			participants := make([]types.Participant, len(dbRoom.Participants))
			for i, p := range dbRoom.Participants {
				participants[i] = types.Participant{
					UserId:        p.AccountId,
					LastReadSeqId: int(p.LastReadSeqId.Int64),
					IsPresent:     r.cs.presence.Contains(r.externalId, p.AccountId),
					JoinedAt:      p.JoinedAt,
				}
			}
			return participants
		}(),
		CreatedAt:     dbRoom.CreatedAt,
		LastMessageAt: dbRoom.LastMessageAt,
	}

	c.queueMessage(NoErrOK(join.Id, map[string]any{"room": roomInfo}))

	if firstSession {
		r.broadcast(&ServerMessage{
			Notification: &Notification{
				Presence: &Presence{
					Present:     true,
					RoomId:      r.externalId,
					UserId:      c.userId,
					OnlineCount: r.cs.presence.Count(r.externalId),
				},
			},
			SkipClient: c,
		})
	}
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	if leaveMsg.Leave.Unsubscribe {
		r.log.Printf("user %d unsubscribing from room %q", leaveMsg.UserId, r.externalId)
		if err := r.cs.db.DeactivateParticipant(leaveMsg.UserId, r.id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				leaveMsg.client.queueMessage(ErrNotAMember(leaveMsg.Id))
			} else {
				r.log.Println("DeactivateParticipant:", err)
				leaveMsg.client.queueMessage(ErrInternalError(leaveMsg.Id))
			}
			return
		}

		r.removeAllClientsForUser(leaveMsg.UserId)
		r.dropPresence(leaveMsg.UserId, leaveMsg.client)
		leaveMsg.client.queueMessage(NoErrOK(leaveMsg.Id, nil))
		return
	}

	client := leaveMsg.client
	lastSession := r.removeClient(client)
	client.queueMessage(NoErrOK(leaveMsg.Id, nil))

	if lastSession {
		r.dropPresence(client.userId, client)
	}
}

// dropPresence deregisters the user from the live registry and tells
// the remaining clients they went offline.
func (r *Room) dropPresence(userId int, skip *Client) {
	r.cs.presence.Leave(r.externalId, userId)
	r.broadcast(&ServerMessage{
		Notification: &Notification{
			Presence: &Presence{
				Present:     false,
				RoomId:      r.externalId,
				UserId:      userId,
				OnlineCount: r.cs.presence.Count(r.externalId),
			},
		},
		SkipClient: skip,
	})
}

// persistAndPublish runs the inbound message pipeline: validate the
// sender and payload, persist with a room-scoped seq id, acknowledge
// the sender, then fan out. A message that fails persistence is
// reported to the sender only and never broadcast.
func (r *Room) persistAndPublish(msg *ClientMessage) {
	if errMsg := r.validatePublish(msg); errMsg != nil {
		msg.client.queueMessage(errMsg)
		return
	}

	sentAt := Now()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	saved, err := r.cs.db.CreateMessage(ctx, database.CreateMessageParams{
		RoomId:       r.id,
		AccountId:    msg.UserId,
		Content:      msg.Publish.Content,
		AttachmentId: nullableId(msg.Publish.AttachmentId),
		SentAt:       sentAt,
	})
	if err != nil {
		r.log.Println("CreateMessage:", err)
		if errors.Is(err, context.DeadlineExceeded) {
			// retryable: nothing was stored, the client may resend
			msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
		} else {
			msg.client.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	r.cs.stats.Incr(stats.MetricTotalMessages)
	msg.client.queueMessage(NoErrAccepted(msg.Id, map[string]any{"seq_id": saved.SeqId}))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Id:        msg.Id,
			Timestamp: sentAt,
		},
		Message: &types.Message{
			SeqId:        saved.SeqId,
			RoomId:       r.externalId,
			UserId:       msg.UserId,
			Content:      saved.Content,
			AttachmentId: int(saved.AttachmentId.Int64),
			Timestamp:    sentAt,
		},
		SkipClient: msg.client,
	})
}

// validatePublish returns the rejection to send, or nil if the
// message may proceed to persistence.
func (r *Room) validatePublish(msg *ClientMessage) *ServerMessage {
	if !r.cs.db.ParticipantIsActive(msg.UserId, r.id) {
		return ErrNotAMember(msg.Id)
	}

	pub := msg.Publish
	if pub.Content == "" && pub.AttachmentId == 0 {
		return ErrInvalidMessage(msg.Id, "message requires content or an attachment")
	}
	if pub.Content != "" && pub.AttachmentId != 0 {
		return ErrInvalidMessage(msg.Id, "message cannot carry both content and an attachment")
	}

	if pub.AttachmentId != 0 {
		info, err := r.cs.attachments.Resolve(pub.AttachmentId)
		if err != nil {
			r.log.Printf("resolve attachment %d: %v", pub.AttachmentId, err)
			return ErrInvalidMessage(msg.Id, "unknown attachment")
		}
		if err := attachments.Validate(info); err != nil {
			return ErrInvalidMessage(msg.Id, err.Error())
		}
	}

	return nil
}

func (r *Room) handleRead(msg *ClientMessage) {
	if !r.cs.db.ParticipantIsActive(msg.UserId, r.id) {
		msg.client.queueMessage(ErrNotAMember(msg.Id))
		return
	}

	// the update is monotonic: stale seq ids are absorbed, not errors
	if err := r.cs.db.UpdateLastReadSeqId(msg.UserId, r.id, msg.Read.SeqId); err != nil {
		r.log.Println("UpdateLastReadSeqId:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))
}

func (r *Room) handleTombstone(req tombstoneReq) {
	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			MessageDeleted: &MessageDeleted{
				RoomId: r.externalId,
				SeqId:  req.seqId,
			},
		},
	})
}

func (r *Room) handleEdit(req updateReq) {
	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			MessageUpdated: &MessageUpdated{
				RoomId:  r.externalId,
				SeqId:   req.seqId,
				Content: req.content,
			},
		},
	})
}

// addClient reports whether this is the user's first live session in
// the room.
func (r *Room) addClient(c *Client) bool {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	first := r.userMap[c.userId] == nil
	if first {
		r.userMap[c.userId] = make(map[*Client]struct{})
	}
	r.userMap[c.userId][c] = struct{}{}

	c.addRoom(r)
	return first
}

// removeClient reports whether the user has no remaining sessions in
// the room.
func (r *Room) removeClient(c *Client) bool {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return false
	}

	delete(r.clients, c)
	c.delRoom(r.externalId)

	last := false
	if userClients, ok := r.userMap[c.userId]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(r.userMap, c.userId)
			last = true
		}
	}

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}

	return last
}

func (r *Room) removeAllClientsForUser(userId int) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if userClients, ok := r.userMap[userId]; ok {
		for client := range userClients {
			delete(r.clients, client)
			client.delRoom(r.externalId)
		}
		delete(r.userMap, userId)
	}

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// broadcast queues msg on every connected client in the room.
// Delivery is best-effort and at-most-once: a client with a full send
// buffer drops this frame and catches up through the history API.
func (r *Room) broadcast(msg *ServerMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = Now()
	}

	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		if !client.queueMessage(msg) {
			r.cs.stats.Incr(stats.MetricDroppedDeliveries)
		}
	}
}

func nullableId(id int) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}
