package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartcampus/chat-server/internal/auth"
	"github.com/smartcampus/chat-server/internal/config"
	"github.com/smartcampus/chat-server/internal/database"
	"github.com/smartcampus/chat-server/internal/presence"
	"github.com/smartcampus/chat-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestApp(t *testing.T, db database.ChatRepository, verifier *auth.MockTokenVerifier) *ChatApp {
	if verifier == nil {
		verifier = &auth.MockTokenVerifier{}
	}
	return NewChatApp(http.NewServeMux(), testutil.TestLogger(t), nil, db,
		presence.NewRegistry(), verifier, &config.Config{})
}

func Test_errorHandler(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, nil)

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected internal error status")
	assert.Equal(t, "close", rr.Header().Get("Connection"), "expected connection close header")

	var apiErr ApiError
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&apiErr), "expected error envelope")
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode, "expected status in envelope")
}

func Test_authMiddleware(t *testing.T) {
	tcases := []struct {
		name         string
		setRequest   func(r *http.Request)
		verifyUserId int
		verifyErr    error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "no credential",
			setRequest:   func(r *http.Request) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "valid cookie",
			setRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "valid-token"})
			},
			verifyUserId: 42,
			expectedCode: http.StatusOK,
		},
		{
			name: "valid bearer token",
			setRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer valid-token")
			},
			verifyUserId: 42,
			expectedCode: http.StatusOK,
		},
		{
			name: "expired token",
			setRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "expired-token"})
			},
			verifyErr:    auth.ErrTokenExpired,
			expectedCode: http.StatusUnauthorized,
			expectedErr:  "token expired",
		},
		{
			name: "invalid token",
			setRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "garbage"})
			},
			verifyErr:    auth.ErrTokenInvalid,
			expectedCode: http.StatusUnauthorized,
			expectedErr:  "unauthorized",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := &auth.MockTokenVerifier{}
			defer verifier.AssertExpectations(t)
			if tc.verifyErr != nil || tc.verifyUserId != 0 {
				verifier.On("Verify", mock.AnythingOfType("string")).Return(tc.verifyUserId, tc.verifyErr).Once()
			}

			app := newTestApp(t, &database.MockChatRepository{}, verifier)

			var gotUserId int
			var nextCalled bool
			handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotUserId, _ = UserId(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setRequest(req)

			rr := httptest.NewRecorder()
			handler(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "expected status code to match")
			if tc.expectedCode == http.StatusOK {
				assert.True(t, nextCalled, "expected next handler to be called")
				assert.Equal(t, tc.verifyUserId, gotUserId, "expected user id in context")
				assert.NotEmpty(t, rr.Header().Get("Cache-Control"), "expected cache control header")
			} else {
				assert.False(t, nextCalled, "expected next handler to not be called")
				if tc.expectedErr != "" {
					var apiErr ApiError
					assert.NoError(t, json.NewDecoder(rr.Body).Decode(&apiErr), "expected error envelope")
					assert.Equal(t, tc.expectedErr, apiErr.Message, "expected error message to match")
				}
			}
		})
	}
}
