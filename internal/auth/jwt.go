package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Viewer Session Tokens
//
// A viewer opens a share link and, when the link requires it, proves their
// email address through a verification code. The app then mints a session
// token scoped to that one link. The API never mints tokens itself in
// production: it only validates them, so a token presented here is proof
// that the viewer already passed whatever gate the link configured.
//
// Claims carry the viewer's resolved identity (viewer id, email, verified
// flag), the link and dataroom the session is bound to, and the viewer-group
// membership used for permission filtering. A session is useless against any
// other link: handlers must check the link id claim against the route.
const (
	// SessionExpiry is how long a viewer session token is valid. Viewers
	// re-verify through the link after this, matching the app's session
	// window.
	SessionExpiry = 24 * time.Hour
)

// Predefined session token errors.
var (
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrSessionExpired      = errors.New("session has expired")
)

// SessionClaims represents the claims in a viewer session token.
type SessionClaims struct {
	jwt.RegisteredClaims

	// ViewerID identifies the viewer record, when the link tracks viewers.
	ViewerID string `json:"vid,omitempty"`

	// LinkID is the share link this session is bound to.
	LinkID string `json:"lid"`

	// DataroomID is the dataroom behind the link.
	DataroomID string `json:"did"`

	// GroupID is the viewer group used for permission filtering, if any.
	GroupID string `json:"gid,omitempty"`

	// Email is the address the viewer entered at the link gate.
	Email string `json:"email,omitempty"`

	// EmailVerified reports whether the address was confirmed with a code,
	// not just typed in.
	EmailVerified bool `json:"email_verified"`
}

// SessionService validates and mints viewer session tokens.
type SessionService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// SessionConfig holds configuration for the session service.
type SessionConfig struct {
	// SigningKey is the secret key shared with the app that mints sessions.
	SigningKey string

	// Issuer is the expected issuer claim (e.g., "https://app.sendroom.io").
	Issuer string

	// Audience is the expected audience claim (e.g., "sendroom-api").
	Audience string
}

// NewSessionService creates a new session service.
func NewSessionService(cfg SessionConfig) *SessionService {
	return &SessionService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}
}

// Session describes the identity a session token is minted for.
type Session struct {
	ViewerID      string
	LinkID        string
	DataroomID    string
	GroupID       string
	Email         string
	EmailVerified bool
}

// Mint creates a signed session token.
func (s *SessionService) Mint(sess Session) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(SessionExpiry)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   sess.ViewerID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		ViewerID:      sess.ViewerID,
		LinkID:        sess.LinkID,
		DataroomID:    sess.DataroomID,
		GroupID:       sess.GroupID,
		Email:         sess.Email,
		EmailVerified: sess.EmailVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate checks a session token and returns its claims.
func (s *SessionService) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidSessionToken, err.Error())
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSessionToken
	}
	if claims.LinkID == "" || claims.DataroomID == "" {
		return nil, ErrInvalidSessionToken
	}

	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
