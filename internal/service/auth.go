package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/cloo-solutions/gistify/internal/domain"
)

// ClientPrincipal is reported for every request authenticated by the static key.
const ClientPrincipal = "api-client"

// StaticKeyAuth validates bearer tokens against a single configured key.
type StaticKeyAuth struct {
	keyHash [sha256.Size]byte
}

func NewStaticKeyAuth(key string) *StaticKeyAuth {
	return &StaticKeyAuth{keyHash: sha256.Sum256([]byte(key))}
}

// ValidateAPIKey compares digests in constant time so token length leaks nothing.
func (a *StaticKeyAuth) ValidateAPIKey(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidAPIKey
	}
	got := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(got[:], a.keyHash[:]) != 1 {
		return "", domain.ErrInvalidAPIKey
	}
	return ClientPrincipal, nil
}
