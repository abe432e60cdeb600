package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails parsing,
// signature verification or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims carried by a bearer token.  The subject is
// the user id in decimal, the ID (jti) ties the token to the single row
// stored for that user.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c AccessClaims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// AccessToken represents a signed JWT along with its id and expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	ID    string    // jti
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The token
// includes sub, role, jti, iat and exp.
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (AccessToken, error) {
	issued := time.Now().UTC().Truncate(time.Second)
	exp := issued.Add(ttl)
	jti := uuid.NewString()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, ID: jti, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and returns
// its claims.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}
	tok, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*AccessClaims)
	if !ok || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFromHeader extracts the credential from an Authorization header.
// Both "Bearer <t>" and "Token <t>" are accepted.
func TokenFromHeader(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "bearer") && !strings.EqualFold(parts[0], "token") {
		return "", false
	}
	return parts[1], true
}

// SecretEqual compares a presented secret with the configured one in
// constant time.  An empty configured secret never matches.
func SecretEqual(configured, presented string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
