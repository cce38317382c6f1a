// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that does not verify.
var ErrInvalidToken = errors.New("invalid token")

// Signer issues and verifies player identity tokens signed with ed25519.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// expiry of 0 issues tokens without an exp claim.
	expiry time.Duration
	now    func() time.Time
}

// NewSigner generates a fresh ed25519 key pair. Tokens do not survive a restart.
func NewSigner(expiry time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub, expiry: expiry, now: time.Now}, nil
}

// NewSignerFromPath reads raw ed25519 private/public keys from file.
func NewSignerFromPath(privatePath, publicPath string, expiry time.Duration) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, errors.New("key files are not raw ed25519 keys")
	}
	return &Signer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expiry:     expiry,
		now:        time.Now,
	}, nil
}

// NewPlayerID returns a fresh random player id.
func NewPlayerID() string {
	return uuid.NewString()
}

// CreateJWT creates a signed JWT with "sub" = playerID and, when an expiry is
// configured, "exp" = now + expiry.
func (s *Signer) CreateJWT(playerID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": playerID,
		"iat": s.now().Unix(),
	}
	if s.expiry > 0 {
		claims["exp"] = s.now().Add(s.expiry).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateJWT verifies a JWT string and returns its "sub" claim.
func (s *Signer) AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid jwt claims", ErrInvalidToken)
	}
	playerID, ok := claims["sub"].(string)
	if !ok || playerID == "" {
		return "", fmt.Errorf("%w: missing sub in jwt", ErrInvalidToken)
	}
	return playerID, nil
}
