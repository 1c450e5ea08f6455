// Package auth implements the server-side write authorization check and the
// password session tokens it accepts.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims carries the session id "<issuedAtMillis>:<nonce>" next to the
// registered claims. The id is what the check decodes; the signature makes it
// unforgeable.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// SessionIssuer mints and verifies password session tokens. It keeps no state
// beyond its signing key.
type SessionIssuer struct {
	key   []byte
	ttl   time.Duration
	clock timex.Clock
}

func NewSessionIssuer(key []byte, ttl time.Duration, clock timex.Clock) *SessionIssuer {
	if clock == nil {
		clock = timex.System{}
	}
	return &SessionIssuer{key: key, ttl: ttl, clock: clock}
}

// TTL is the lifetime of issued tokens.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue returns a signed token and its expiry.
func (s *SessionIssuer) Issue() (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: fmt.Sprintf("%d:%s", now.UnixMilli(), uuid.NewString()),
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify accepts a token only if its signature is valid and its session id
// decodes to a timestamp t with 0 <= now-t < TTL.
func (s *SessionIssuer) Verify(tokenString string) error {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}

	issuedAt, err := ParseSessionID(claims.SessionID)
	if err != nil {
		return err
	}

	age := s.clock.Now().Sub(issuedAt)
	if age < 0 {
		return fmt.Errorf("%w: issued in the future", common.ErrInvalidToken)
	}
	if age >= s.ttl {
		return common.ErrTokenExpired
	}
	return nil
}

// ParseSessionID decodes "<issuedAtMillis>:<nonce>". Exactly two parts are
// required and the first must be an integer.
func ParseSessionID(sid string) (time.Time, error) {
	parts := strings.Split(sid, ":")
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, fmt.Errorf("%w: malformed session id", common.ErrInvalidToken)
	}
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed timestamp", common.ErrInvalidToken)
	}
	return time.UnixMilli(ms), nil
}
