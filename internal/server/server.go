package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/smartcampus/chat-server/internal/attachments"
	"github.com/smartcampus/chat-server/internal/database"
	"github.com/smartcampus/chat-server/internal/presence"
	"github.com/smartcampus/chat-server/internal/stats"
)

type unloadRoomRequest struct {
	roomId string
}

type stopReq struct {
	done chan struct{}
}

type tombstoneReq struct {
	roomId string
	seqId  int
}

type updateReq struct {
	roomId  string
	seqId   int
	content string
}

type ChatServer struct {
	log            *log.Logger
	db             database.ChatRepository
	presence       *presence.Registry
	attachments    attachments.Resolver
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	joinChan       chan *ClientMessage
	registerChan   chan *Client
	deRegisterChan chan *Client
	unloadRoomChan chan unloadRoomRequest
	tombstoneChan  chan tombstoneReq
	updateChan     chan updateReq
	rooms          map[string]*Room
	stop           chan stopReq
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, registry *presence.Registry,
	resolver attachments.Resolver, sp stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		db:             db,
		presence:       registry,
		attachments:    resolver,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		joinChan:       make(chan *ClientMessage, 256),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadRoomChan: make(chan unloadRoomRequest, 256),
		tombstoneChan:  make(chan tombstoneReq, 256),
		updateChan:     make(chan updateReq, 256),
		rooms:          make(map[string]*Room),
		stop:           make(chan stopReq),
	}

	for _, metric := range []string{
		stats.MetricActiveConnections,
		stats.MetricActiveRooms,
		stats.MetricTotalMessages,
		stats.MetricDroppedDeliveries,
	} {
		cs.stats.RegisterMetric(metric)
	}

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case joinMsg := <-cs.joinChan:
			cs.handleJoinRequest(joinMsg)
		case client := <-cs.registerChan:
			cs.log.Printf("adding connection for user %d", client.userId)
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection for user %d", client.userId)
			cs.removeClient(client)
		case req := <-cs.unloadRoomChan:
			if r, ok := cs.rooms[req.roomId]; ok {
				cs.unloadRoom(r.externalId)
				r.exit <- exitReq{done: make(chan struct{})}
			}
		case req := <-cs.tombstoneChan:
			if r, ok := cs.rooms[req.roomId]; ok {
				select {
				case r.deleteChan <- req:
				default:
					cs.log.Printf("deleteChan full for room %q", r.externalId)
				}
			}
			// no loaded room means no live subscribers to notify
		case req := <-cs.updateChan:
			if r, ok := cs.rooms[req.roomId]; ok {
				select {
				case r.editChan <- req:
				default:
					cs.log.Printf("editChan full for room %q", r.externalId)
				}
			}
		case req := <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				done := make(chan struct{})
				r.exit <- exitReq{done: done}
				<-done
			}

			cs.clientsLock.Lock()
			for c := range cs.clients {
				c.stopClient()
			}
			cs.clientsLock.Unlock()

			close(req.done)
			return
		}
	}
}

// handleJoinRequest routes a join to the room's goroutine, loading the
// room from storage first if it is not resident.
func (cs *ChatServer) handleJoinRequest(joinMsg *ClientMessage) {
	if room, ok := cs.rooms[joinMsg.Join.RoomId]; ok {
		select {
		case room.joinChan <- joinMsg:
		default:
			cs.log.Printf("join channel full on room %q", room.externalId)
			joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
		}
		return
	}

	dbRoom, err := cs.db.GetRoomByExternalId(joinMsg.Join.RoomId)
	if err != nil {
		joinMsg.client.queueMessage(ErrRoomNotFound(joinMsg.Id))
		return
	}

	room := newRoom(cs, dbRoom)
	cs.rooms[room.externalId] = room
	cs.stats.Incr(stats.MetricActiveRooms)
	room.joinChan <- joinMsg

	go room.start()
}

// RegisterClient hands a freshly upgraded connection to the hub.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.registerChan <- c
}

// BroadcastDelete pushes a tombstone notification to the room's live
// subscribers. Rooms with no resident state have no subscribers and
// nothing to do.
func (cs *ChatServer) BroadcastDelete(ctx context.Context, roomExternalId string, seqId int) error {
	select {
	case cs.tombstoneChan <- tombstoneReq{roomId: roomExternalId, seqId: seqId}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BroadcastUpdate pushes an edit notification to the room's live
// subscribers.
func (cs *ChatServer) BroadcastUpdate(ctx context.Context, roomExternalId string, seqId int, content string) error {
	select {
	case cs.updateChan <- updateReq{roomId: roomExternalId, seqId: seqId, content: content}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
	cs.stats.Incr(stats.MetricActiveConnections)
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	if _, ok := cs.clients[c]; ok {
		delete(cs.clients, c)
		cs.stats.Decr(stats.MetricActiveConnections)
	}
}

func (cs *ChatServer) unloadRoom(roomId string) {
	if r, ok := cs.rooms[roomId]; ok {
		cs.log.Printf("unloading room %q", r.externalId)
		delete(cs.rooms, roomId)
		cs.stats.Decr(stats.MetricActiveRooms)
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return fmt.Errorf("chat server shutdown: %w", ctx.Err())
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("chat server shutdown: %w", ctx.Err())
	}
}
