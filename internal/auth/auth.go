package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	// ErrNoToken is returned when no credential was presented.
	ErrNoToken = errors.New("no token provided")
	// ErrTokenExpired is returned for a well-formed token whose
	// expiry has passed. Clients use this to prompt a re-login.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed tokens or bad signatures.
	ErrTokenInvalid = errors.New("invalid token")
)

const (
	userIdClaim = "user-id"
	expClaim    = "exp"
)

// TokenVerifier resolves a raw credential to a user identity. It runs
// exactly once per connection attempt, at handshake time.
type TokenVerifier interface {
	Verify(credential string) (int, error)
}

// JwtVerifier validates HS256 tokens issued by the identity service.
type JwtVerifier struct {
	signingKey []byte
}

func NewJwtVerifier(signingKey []byte) *JwtVerifier {
	return &JwtVerifier{signingKey: signingKey}
}

func (v *JwtVerifier) Verify(credential string) (int, error) {
	if credential == "" {
		return 0, ErrNoToken
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	if !token.Valid {
		return 0, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrTokenInvalid
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return 0, ErrTokenInvalid
	}

	return int(userId), nil
}

// NewToken mints a token for user id. Identity issuance belongs to the
// auth service; this exists for tests and local development.
func NewToken(signingKey []byte, userId int, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: userId,
		expClaim:    time.Now().Add(exp).Unix(),
	})

	return token.SignedString(signingKey)
}
