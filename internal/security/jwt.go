package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

// Claims is the authenticated principal carried by the session cookie.
type Claims struct {
	Username string `json:"usr"`
	Role     string `json:"role"`
	Remember bool   `json:"rem,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse subject: %w", err)
	}
	return uint(id), nil
}

type JWTManager struct {
	issuer string
	secret []byte
	now    func() time.Time
}

func NewJWTManager(issuer, secret string) *JWTManager {
	return &JWTManager{issuer: issuer, secret: []byte(secret), now: time.Now}
}

func (m *JWTManager) SignSessionToken(userID uint, username, role string, remember bool, ttl time.Duration) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Username: username,
		Role:     role,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (m *JWTManager) ParseSessionToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSessionToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}
