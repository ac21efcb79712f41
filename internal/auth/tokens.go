package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/retroarena/eventengine/internal/id"
)

const (
	tokenIssuer   = "retroarena-eventengine"
	tokenAudience = "retroarena-client"

	// PASETO v4 symmetric key requirements.
	keyBytesSize = 32 // 256 bits
	keyHexSize   = 64 // 32 bytes as hex string
)

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing bearer token")

// TokenService handles PASETO token generation and verification.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
}

// NewTokenService creates a token service from a raw 32-byte key.
func NewTokenService(key []byte, accessDuration time.Duration) (*TokenService, error) {
	if len(key) != keyBytesSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyBytesSize, len(key))
	}

	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey:        symmetric,
		accessTokenDuration: accessDuration,
	}, nil
}

// Issue creates a v4.local access token for the user, valid from now.
func (s *TokenService) Issue(userID, username string, role Role, now time.Time) (string, error) {
	if err := checkUserID(userID); err != nil {
		return "", err
	}
	token := paseto.NewToken()

	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessTokenDuration))

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on unmarshalable values
	_ = token.Set("user_id", userID)
	//nolint:errcheck // Token.Set only errors on unmarshalable values
	_ = token.Set("username", username)
	//nolint:errcheck // Token.Set only errors on unmarshalable values
	_ = token.Set("role", string(role))

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// checkUserID rejects ids that cannot key engine records.
func checkUserID(userID string) error {
	switch {
	case userID == "":
		return errors.New("missing user_id")
	case strings.Contains(userID, ":"):
		return fmt.Errorf("user_id %q contains ':'", userID)
	}
	return nil
}

// Verify decrypts a token and checks issuer, audience and validity at now.
func (s *TokenService) Verify(tokenString string, now time.Time) (*Claims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(now))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if err := checkUserID(claims.UserID); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims.Role = ParseRole(string(claims.Role))
	return &claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
