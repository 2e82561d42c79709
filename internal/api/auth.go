package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/smartcampus/chat-server/internal/auth"
)

const tokenCookieKey = "token"

type contextKey string

const userIdKey contextKey = "user-id"

func WithUserId(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (int, bool) {
	userId, ok := ctx.Value(userIdKey).(int)

	return userId, ok
}

// extractCredential reads the session token from the "token" cookie,
// falling back to an Authorization bearer header for non-browser clients.
func extractCredential(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(tokenCookieKey); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if bearer, ok := strings.CutPrefix(authHeader, "Bearer "); ok && bearer != "" {
		return bearer, nil
	}

	return "", auth.ErrNoToken
}

func (s *ChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential, err := extractCredential(r)
		if err != nil {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		userId, err := s.verifier.Verify(credential)
		if err != nil {
			s.log.Printf("verify token: %v", err)
			var errResp *ApiError
			if errors.Is(err, auth.ErrTokenExpired) {
				errResp = NewTokenExpiredError()
			} else {
				errResp = NewUnauthorizedError()
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUserId(r.Context(), userId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
