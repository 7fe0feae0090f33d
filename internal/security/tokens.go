package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims holds JWT claims for the access token. The session id binds
// the token to one device session so revoking the session kills the token's
// usefulness at the next check.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// TokenProvider issues and validates HS256 access tokens for account sessions.
type TokenProvider struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given HMAC secret.
// issuer and audience are set on claims and validated on parse.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:    secret,
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
	}
}

// IssueAccess issues a short-lived access JWT for the given session and account.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(sessionID, accountID string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, expiresAt, err
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud).
// Returns sessionID and accountID, or an error.
func (p *TokenProvider) ValidateAccess(tokenString string) (sessionID, accountID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		return "", "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", "", ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return "", "", ErrInvalidToken
	}
	return claims.SessionID, claims.Subject, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
