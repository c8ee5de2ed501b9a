package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zeni-bff/internal/config"
)

// Claims holds the admin session payload.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Provider signs and verifies session tokens: HS256 with a shared secret when
// one is configured, RS256 with a PEM key pair otherwise.
type Provider struct {
	method  jwt.SigningMethod
	signKey any
	verKey  any
	expiry  time.Duration
	now     func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	p := &Provider{expiry: cfg.JWTExpiry, now: time.Now}
	if cfg.JWTSecret != "" {
		p.method = jwt.SigningMethodHS256
		p.signKey = []byte(cfg.JWTSecret)
		p.verKey = []byte(cfg.JWTSecret)
		return p, nil
	}

	privKey, err := loadPrivateKey(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, err
	}
	pubKey, err := loadPublicKey(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, err
	}
	p.method = jwt.SigningMethodRS256
	p.signKey = privKey
	p.verKey = pubKey
	return p, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	k, err := jwt.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return k, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	k, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return k, nil
}

// Expiry is the lifetime applied to newly signed tokens.
func (p *Provider) Expiry() time.Duration { return p.expiry }

func (p *Provider) Sign(email, role string) (string, error) {
	now := p.now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(p.method, claims).SignedString(p.signKey)
}

// Verify checks signature, algorithm and expiry.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != p.method.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return p.verKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
