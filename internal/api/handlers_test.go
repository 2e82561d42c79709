package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartcampus/chat-server/internal/attachments"
	"github.com/smartcampus/chat-server/internal/database"
	"github.com/smartcampus/chat-server/internal/presence"
	"github.com/smartcampus/chat-server/internal/server"
	"github.com/smartcampus/chat-server/internal/stats"
	"github.com/smartcampus/chat-server/internal/testutil"
	"github.com/smartcampus/chat-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestChatServer(t *testing.T, db database.ChatRepository) *server.ChatServer {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return(nil).Times(4)

	cs, err := server.NewChatServer(testutil.TestLogger(t), db, presence.NewRegistry(),
		&attachments.MockResolver{}, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}
	return cs
}

// authedRequest builds a request carrying an authenticated user id, the
// way requests arrive after the auth middleware.
func authedRequest(method, target string, userId int, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(WithUserId(req.Context(), userId))
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo, nil)
			rr := httptest.NewRecorder()
			app.healthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}

func TestResolveRoomHandler(t *testing.T) {
	existingRoom := database.Room{
		Id:          1,
		ExternalId:  "EoGKUXPHgz",
		RoomType:    "POST",
		ReferenceId: sql.NullInt64{Int64: 55, Valid: true},
		Title:       "lost and found",
		CreatedAt:   time.Now().UTC(),
	}

	tcases := []struct {
		name         string
		body         any
		mockRoom     database.Room
		mockCreated  bool
		mockErr      error
		expectMock   bool
		expectedCode int
	}{
		{
			name:         "creates room on first resolve",
			body:         ResolveRoomRequest{RoomType: "POST", ReferenceId: 55, Title: "lost and found"},
			mockRoom:     existingRoom,
			mockCreated:  true,
			expectMock:   true,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "returns existing room",
			body:         ResolveRoomRequest{RoomType: "POST", ReferenceId: 55, Title: "lost and found"},
			mockRoom:     existingRoom,
			mockCreated:  false,
			expectMock:   true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "invalid json body",
			body:         "invalid json",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown room type",
			body:         ResolveRoomRequest{RoomType: "VOICE", ReferenceId: 55},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "direct type is rejected",
			body:         ResolveRoomRequest{RoomType: "DIRECT", ReferenceId: 55},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "missing reference id",
			body:         ResolveRoomRequest{RoomType: "STUDY"},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "storage failure",
			body:         ResolveRoomRequest{RoomType: "POST", ReferenceId: 55},
			mockErr:      errors.New("db down"),
			expectMock:   true,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.expectMock {
				mockRepo.On("GetOrCreateRoom", mock.MatchedBy(func(p database.GetOrCreateRoomParams) bool {
					return p.RoomType == "POST" && p.ReferenceId == 55 && p.ExternalId != ""
				})).Return(tc.mockRoom, tc.mockCreated, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)
			rr := httptest.NewRecorder()
			app.resolveRoom(rr, authedRequest(http.MethodPost, "/api/rooms", 1, tc.body))

			assert.Equal(t, tc.expectedCode, rr.Code, "expected status code to match")
			if tc.expectedCode == http.StatusOK || tc.expectedCode == http.StatusCreated {
				var room types.Room
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&room), "expected room in response")
				assert.Equal(t, existingRoom.ExternalId, room.ExternalId, "expected external id to match")
				assert.Equal(t, types.RoomTypePost, room.RoomType, "expected room type to match")
				assert.Equal(t, 55, room.ReferenceId, "expected reference id to match")
			}
		})
	}
}

func TestResolveDirectRoomHandler(t *testing.T) {
	directRoom := database.Room{
		Id:         2,
		ExternalId: "d1r3ctAbc",
		RoomType:   "DIRECT",
		Title:      "dm",
	}

	tcases := []struct {
		name         string
		userId       int
		body         any
		mockCreated  bool
		expectMock   bool
		expectedCode int
	}{
		{
			name:         "creates direct room",
			userId:       1,
			body:         ResolveDirectRoomRequest{UserId: 2, Title: "dm"},
			mockCreated:  true,
			expectMock:   true,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "returns existing direct room regardless of caller order",
			userId:       2,
			body:         ResolveDirectRoomRequest{UserId: 1, Title: "dm"},
			mockCreated:  false,
			expectMock:   true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "missing peer user id",
			userId:       1,
			body:         ResolveDirectRoomRequest{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "direct room with self",
			userId:       1,
			body:         ResolveDirectRoomRequest{UserId: 1},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "invalid json body",
			userId:       1,
			body:         "invalid json",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.expectMock {
				req := tc.body.(ResolveDirectRoomRequest)
				mockRepo.On("GetOrCreateDirectRoom", tc.userId, req.UserId, req.Title, mock.AnythingOfType("string")).
					Return(directRoom, tc.mockCreated, nil).Once()
			}

			app := newTestApp(t, mockRepo, nil)
			rr := httptest.NewRecorder()
			app.resolveDirectRoom(rr, authedRequest(http.MethodPost, "/api/rooms/direct", tc.userId, tc.body))

			assert.Equal(t, tc.expectedCode, rr.Code, "expected status code to match")
		})
	}
}

func TestGetRoomHandler(t *testing.T) {
	dbRoom := database.Room{
		Id:         1,
		ExternalId: "EoGKUXPHgz",
		RoomType:   "GROUP",
		Title:      "club",
		SeqId:      10,
	}
	fullRoom := dbRoom
	fullRoom.Participants = []database.Participant{
		{AccountId: 1, RoomId: 1, Active: true, LastReadSeqId: sql.NullInt64{Int64: 8, Valid: true}},
		{AccountId: 2, RoomId: 1, Active: true},
	}

	t.Run("successful lookup", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("GetRoomWithParticipants", 1).Return(&fullRoom, nil).Once()

		app := newTestApp(t, mockRepo, nil)
		app.presence.Join("EoGKUXPHgz", 1)

		rr := httptest.NewRecorder()
		app.getRoom(rr, authedRequest(http.MethodGet, "/api/rooms?id=EoGKUXPHgz", 1, nil))

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		var room types.Room
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&room), "expected room in response")
		assert.Len(t, room.Participants, 2, "expected both participants")
		assert.Equal(t, 1, room.OnlineCount, "expected online count to reflect presence")
		assert.Equal(t, 8, room.Participants[0].LastReadSeqId, "expected read pointer to be included")
		assert.True(t, room.Participants[0].IsPresent, "expected present participant to be flagged")
		assert.False(t, room.Participants[1].IsPresent, "expected absent participant to not be flagged")
	})

	t.Run("missing id", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{}, nil)
		rr := httptest.NewRecorder()
		app.getRoom(rr, authedRequest(http.MethodGet, "/api/rooms", 1, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})

	t.Run("room not found", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "missing").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.getRoom(rr, authedRequest(http.MethodGet, "/api/rooms?id=missing", 1, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, "expected status code to be 404")
	})
}

func TestGetUnreadCountsHandler(t *testing.T) {
	t.Run("all rooms", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListUnreadCounts", 1).Return([]database.UnreadCount{
			{RoomExternalId: "room-a", Count: 3},
			{RoomExternalId: "room-b", Count: 0},
		}, nil).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.getUnreadCounts(rr, authedRequest(http.MethodGet, "/api/rooms/unread", 1, nil))

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		var unread []types.UnreadRoom
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&unread), "expected unread counts in response")
		assert.Len(t, unread, 2, "expected a row per room")
		assert.Equal(t, "room-a", unread[0].RoomId, "expected room id to match")
		assert.Equal(t, 3, unread[0].UnreadCount, "expected unread count to match")
	})

	t.Run("single room filter", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "room-a").Return(database.Room{Id: 1, ExternalId: "room-a"}, nil).Once()
		mockRepo.On("ParticipantIsActive", 1, 1).Return(true).Once()
		mockRepo.On("GetUnreadCount", 1, 1).Return(3, nil).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.getUnreadCounts(rr, authedRequest(http.MethodGet, "/api/rooms/unread?room_id=room-a", 1, nil))

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		var unread []types.UnreadRoom
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&unread), "expected unread counts in response")
		assert.Len(t, unread, 1, "expected a single row")
		assert.Equal(t, "room-a", unread[0].RoomId, "expected room id to match")
		assert.Equal(t, 3, unread[0].UnreadCount, "expected unread count to match")
		mockRepo.AssertNotCalled(t, "ListUnreadCounts", mock.Anything)
	})

	t.Run("filter on unknown room", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "missing").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.getUnreadCounts(rr, authedRequest(http.MethodGet, "/api/rooms/unread?room_id=missing", 1, nil))

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected status code to be 404")
	})

	t.Run("filter by non-member is forbidden", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "room-a").Return(database.Room{Id: 1, ExternalId: "room-a"}, nil).Once()
		mockRepo.On("ParticipantIsActive", 2, 1).Return(false).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.getUnreadCounts(rr, authedRequest(http.MethodGet, "/api/rooms/unread?room_id=room-a", 2, nil))

		assert.Equal(t, http.StatusForbidden, rr.Code, "expected status code to be 403")
		mockRepo.AssertNotCalled(t, "GetUnreadCount", mock.Anything, mock.Anything)
	})
}

func TestGetMessagesHandler(t *testing.T) {
	dbRoom := database.Room{Id: 1, ExternalId: "EoGKUXPHgz", RoomType: "GROUP"}
	sentAt := time.Now().UTC()

	t.Run("successful fetch", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("ParticipantIsActive", 1, 1).Return(true).Once()
		mockRepo.On("GetMessages", 1, 5, 20, 10).Return([]database.Message{
			{SeqId: 19, RoomId: 1, AccountId: 2, Content: "hello", SentAt: sentAt},
			{SeqId: 18, RoomId: 1, AccountId: 1, Content: "", Deleted: true, SentAt: sentAt},
		}, nil).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		target := fmt.Sprintf("/api/messages?room_id=%s&after=5&before=20&limit=10", dbRoom.ExternalId)
		app.getMessages(rr, authedRequest(http.MethodGet, target, 1, nil))

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		var msgs []types.Message
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&msgs), "expected messages in response")
		assert.Len(t, msgs, 2, "expected both messages")
		assert.Equal(t, "EoGKUXPHgz", msgs[0].RoomId, "expected wire room id to be the external id")
		assert.True(t, msgs[1].Deleted, "expected tombstone flag to survive")
		assert.Empty(t, msgs[1].Content, "expected tombstoned content to be blank")
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("ParticipantIsActive", 1, 1).Return(false).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.getMessages(rr, authedRequest(http.MethodGet, "/api/messages?room_id=EoGKUXPHgz", 1, nil))

		assert.Equal(t, http.StatusForbidden, rr.Code, "expected status code to be 403")
		mockRepo.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid pagination params", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("ParticipantIsActive", 1, 1).Return(true).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.getMessages(rr, authedRequest(http.MethodGet, "/api/messages?room_id=EoGKUXPHgz&before=abc", 1, nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})

	t.Run("missing room id", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{}, nil)
		rr := httptest.NewRecorder()
		app.getMessages(rr, authedRequest(http.MethodGet, "/api/messages", 1, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})
}

func TestDeleteMessageHandler(t *testing.T) {
	dbRoom := database.Room{Id: 1, ExternalId: "EoGKUXPHgz", RoomType: "GROUP"}

	t.Run("successful delete", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("SoftDeleteMessage", 1, 7, 1).Return(database.Message{SeqId: 7, RoomId: 1, Deleted: true}, nil).Once()

		app := newTestApp(t, mockRepo, nil)
		app.cs = newTestChatServer(t, mockRepo)

		rr := httptest.NewRecorder()
		app.deleteMessage(rr, authedRequest(http.MethodDelete, "/api/messages?room_id=EoGKUXPHgz&seq_id=7", 1, nil))

		assert.Equal(t, http.StatusNoContent, rr.Code, "expected status code to be 204")
	})

	t.Run("deleting another user's message is forbidden", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("SoftDeleteMessage", 1, 7, 2).Return(database.Message{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.deleteMessage(rr, authedRequest(http.MethodDelete, "/api/messages?room_id=EoGKUXPHgz&seq_id=7", 2, nil))

		assert.Equal(t, http.StatusForbidden, rr.Code, "expected status code to be 403")
	})

	t.Run("missing params", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{}, nil)
		rr := httptest.NewRecorder()
		app.deleteMessage(rr, authedRequest(http.MethodDelete, "/api/messages?room_id=EoGKUXPHgz", 1, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})

	t.Run("room not found", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "missing").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.deleteMessage(rr, authedRequest(http.MethodDelete, "/api/messages?room_id=missing&seq_id=7", 1, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, "expected status code to be 404")
	})
}

func TestUpdateMessageHandler(t *testing.T) {
	dbRoom := database.Room{Id: 1, ExternalId: "EoGKUXPHgz", RoomType: "GROUP"}

	t.Run("successful edit", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("UpdateMessageContent", 1, 7, 1, "edited text").
			Return(database.Message{SeqId: 7, RoomId: 1, AccountId: 1, Content: "edited text"}, nil).Once()

		app := newTestApp(t, mockRepo, nil)
		app.cs = newTestChatServer(t, mockRepo)

		rr := httptest.NewRecorder()
		app.updateMessage(rr, authedRequest(http.MethodPut, "/api/messages?room_id=EoGKUXPHgz&seq_id=7", 1,
			UpdateMessageRequest{Content: "edited text"}))

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		var msg types.Message
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&msg), "expected message in response")
		assert.Equal(t, "EoGKUXPHgz", msg.RoomId, "expected wire room id to be the external id")
		assert.Equal(t, 7, msg.SeqId, "expected seq id to be unchanged")
		assert.Equal(t, "edited text", msg.Content, "expected updated content")
	})

	t.Run("editing another user's message is forbidden", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "EoGKUXPHgz").Return(dbRoom, nil).Once()
		mockRepo.On("UpdateMessageContent", 1, 7, 2, "edited text").Return(database.Message{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.updateMessage(rr, authedRequest(http.MethodPut, "/api/messages?room_id=EoGKUXPHgz&seq_id=7", 2,
			UpdateMessageRequest{Content: "edited text"}))

		assert.Equal(t, http.StatusForbidden, rr.Code, "expected status code to be 403")
	})

	t.Run("empty content", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{}, nil)
		rr := httptest.NewRecorder()
		app.updateMessage(rr, authedRequest(http.MethodPut, "/api/messages?room_id=EoGKUXPHgz&seq_id=7", 1,
			UpdateMessageRequest{}))

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})

	t.Run("missing params", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{}, nil)
		rr := httptest.NewRecorder()
		app.updateMessage(rr, authedRequest(http.MethodPut, "/api/messages?room_id=EoGKUXPHgz", 1,
			UpdateMessageRequest{Content: "edited text"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})

	t.Run("room not found", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "missing").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil)
		rr := httptest.NewRecorder()
		app.updateMessage(rr, authedRequest(http.MethodPut, "/api/messages?room_id=missing&seq_id=7", 1,
			UpdateMessageRequest{Content: "edited text"}))

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected status code to be 404")
	})
}

func Test_serveWs_requiresAuth(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, nil)

	rr := httptest.NewRecorder()
	app.serveWs(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected status code to be 401")
}
