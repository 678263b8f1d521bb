package jwt

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/kbukum/authguard/errors"
	"github.com/kbukum/authguard/httpclient"
)

const (
	defaultKeySetTTL = 10 * time.Minute
	// minRefetch limits refetches triggered by unknown key ids.
	minRefetch = 30 * time.Second
)

// ErrKeyNotCached is wrapped by the availability error returned when a key id
// is unknown and the set was fetched too recently to fetch it again.
var ErrKeyNotCached = errors.New("signing key not cached")

// KeySet fetches and caches the public keys published at a JWKS endpoint.
type KeySet struct {
	client *httpclient.Client
	path   string
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	keys      map[string]crypto.PublicKey
	fetchedAt time.Time
}

// NewKeySet creates a key set served by client at path. ttl <= 0 uses ten minutes.
func NewKeySet(client *httpclient.Client, path string, ttl time.Duration) *KeySet {
	if ttl <= 0 {
		ttl = defaultKeySetTTL
	}
	return &KeySet{client: client, path: path, ttl: ttl, now: time.Now}
}

// Key returns the public key with the given id, fetching the set when the
// cache is stale or does not know the id.
func (ks *KeySet) Key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	ks.mu.RLock()
	key, ok := ks.keys[kid]
	age := ks.now().Sub(ks.fetchedAt)
	fetched := ks.keys != nil
	ks.mu.RUnlock()

	if ok && age < ks.ttl {
		return key, nil
	}
	switch {
	case fetched && age < minRefetch && !ok:
		return nil, apperrors.ServiceUnavailable("auth keys").
			WithCause(fmt.Errorf("key %q: %w", kid, ErrKeyNotCached))
	case !fetched || age >= minRefetch || age >= ks.ttl:
		if err := ks.refresh(ctx); err != nil {
			if ok {
				// Stale keys stay usable while the endpoint is down.
				return key, nil
			}
			return nil, err
		}
		ks.mu.RLock()
		key, ok = ks.keys[kid]
		ks.mu.RUnlock()
	}
	if !ok {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}
	return key, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (ks *KeySet) refresh(ctx context.Context) error {
	resp, err := ks.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: ks.path})
	if err != nil {
		return httpclient.ToAppError("auth keys", err)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return apperrors.ExternalServiceError("auth keys", fmt.Errorf("decode JWKS: %w", err))
	}

	keys := make(map[string]crypto.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	ks.mu.Lock()
	ks.keys = keys
	ks.fetchedAt = ks.now()
	ks.mu.Unlock()
	return nil
}

func (k *jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		n, err := decodeInt(k.N)
		if err != nil {
			return nil, fmt.Errorf("decode RSA n: %w", err)
		}
		e, err := decodeInt(k.E)
		if err != nil {
			return nil, fmt.Errorf("decode RSA e: %w", err)
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve: %s", k.Crv)
		}
		x, err := decodeInt(k.X)
		if err != nil {
			return nil, fmt.Errorf("decode EC x: %w", err)
		}
		y, err := decodeInt(k.Y)
		if err != nil {
			return nil, fmt.Errorf("decode EC y: %w", err)
		}
		return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("unsupported key type: %s", k.Kty)
	}
}

func decodeInt(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
