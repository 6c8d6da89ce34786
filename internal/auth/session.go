// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/config"
)

// Key file names written by GenerateKeyFiles.
const (
	PrivateKeyFile = "ed25519.key"
	PublicKeyFile  = "ed25519.pub"
)

// ErrUnauthorized is returned for a missing, malformed, or unverifiable bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long minted tokens live (0 => never).
	tokenTTL time.Duration
)

// ParseExpiry reads a TOKEN_EXPIRE_TIME value. "", "0" and "never" mean no expiry.
func ParseExpiry(value string) (time.Duration, error) {
	if value == "never" || value == "0" || value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Setup loads the key pair named in cfg, or generates an ephemeral pair when no paths are set.
func Setup(cfg config.Auth) error {
	if cfg.PrivateKeyPath == "" && cfg.PublicKeyPath == "" {
		return Init(cfg.TokenExpireTime)
	}
	return InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpireTime)
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
func Init(expire string) error {
	ttl, err := ParseExpiry(expire)
	if err != nil {
		return err
	}
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey, tokenTTL = pub, priv, ttl
	return nil
}

// InitFromPath reads raw ed25519 private/public keys from file and sets the token expiration.
// An empty privatePath loads a verify-only setup.
func InitFromPath(privatePath, publicPath, expire string) error {
	ttl, err := ParseExpiry(expire)
	if err != nil {
		return err
	}

	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("public key %s: want %d bytes, got %d", publicPath, ed25519.PublicKeySize, len(publicKeyData))
	}

	var priv ed25519.PrivateKey
	if privatePath != "" {
		privateKeyData, err := os.ReadFile(privatePath)
		if err != nil {
			return fmt.Errorf("failed to read private key file: %w", err)
		}
		if len(privateKeyData) != ed25519.PrivateKeySize {
			return fmt.Errorf("private key %s: want %d bytes, got %d", privatePath, ed25519.PrivateKeySize, len(privateKeyData))
		}
		priv = ed25519.PrivateKey(privateKeyData)
	}

	privateKey, publicKey, tokenTTL = priv, ed25519.PublicKey(publicKeyData), ttl
	return nil
}

// GenerateKeyFiles writes a new raw ed25519 key pair into dir and returns both paths.
func GenerateKeyFiles(dir string) (string, string, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("create key dir: %w", err)
	}
	privPath := filepath.Join(dir, PrivateKeyFile)
	pubPath := filepath.Join(dir, PublicKeyFile)
	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		return "", "", fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		return "", "", fmt.Errorf("write public key: %w", err)
	}
	return privPath, pubPath, nil
}

// CreateJWT creates a signed JWT token with "sub" = userID and, when a TTL is configured, "exp".
func CreateJWT(userID string) (string, error) {
	if privateKey == nil {
		return "", errors.New("no private key loaded")
	}
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a JWT string, returns the "sub" field if valid, else an error.
func AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return userID, nil
}

// OwnerFromRequest resolves the bearer token on r to a user id.
// Every failure wraps ErrUnauthorized.
func OwnerFromRequest(r *http.Request) (uuid.UUID, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return uuid.Nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	sub, err := AuthenticateJWT(strings.TrimSpace(token))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	owner, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrUnauthorized)
	}
	return owner, nil
}
