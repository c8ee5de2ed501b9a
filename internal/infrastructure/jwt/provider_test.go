package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeni-bff/internal/config"
)

func writeKeyPair(t *testing.T) (string, string) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))
	return privPath, pubPath
}

func TestProvider_HS256RoundTrip(t *testing.T) {
	p, err := NewProvider(&config.Config{JWTSecret: "s3cret", JWTExpiry: time.Hour})
	require.NoError(t, err)

	signed, err := p.Sign("admin@example.com", "admin")
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestProvider_RS256RoundTrip(t *testing.T) {
	priv, pub := writeKeyPair(t)
	p, err := NewProvider(&config.Config{JWTPrivateKeyPath: priv, JWTPublicKeyPath: pub, JWTExpiry: time.Hour})
	require.NoError(t, err)

	signed, err := p.Sign("admin@example.com", "admin")
	require.NoError(t, err)
	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
}

func TestProvider_MissingKeyFiles(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: "/nonexistent", JWTPublicKeyPath: "/nonexistent"})
	assert.ErrorContains(t, err, "read private key")
}

func TestProvider_RejectsExpired(t *testing.T) {
	p, err := NewProvider(&config.Config{JWTSecret: "s3cret", JWTExpiry: time.Hour})
	require.NoError(t, err)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	signed, err := p.Sign("admin@example.com", "admin")
	require.NoError(t, err)
	_, err = p.Verify(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestProvider_RejectsOtherSecret(t *testing.T) {
	a, err := NewProvider(&config.Config{JWTSecret: "one", JWTExpiry: time.Hour})
	require.NoError(t, err)
	b, err := NewProvider(&config.Config{JWTSecret: "two", JWTExpiry: time.Hour})
	require.NoError(t, err)

	signed, err := a.Sign("admin@example.com", "admin")
	require.NoError(t, err)
	_, err = b.Verify(signed)
	assert.Error(t, err)
}

func TestProvider_RejectsAlgorithmSwap(t *testing.T) {
	priv, pub := writeKeyPair(t)
	rs, err := NewProvider(&config.Config{JWTPrivateKeyPath: priv, JWTPublicKeyPath: pub, JWTExpiry: time.Hour})
	require.NoError(t, err)
	hs, err := NewProvider(&config.Config{JWTSecret: "s3cret", JWTExpiry: time.Hour})
	require.NoError(t, err)

	signed, err := hs.Sign("admin@example.com", "admin")
	require.NoError(t, err)
	_, err = rs.Verify(signed)
	assert.Error(t, err)
}
