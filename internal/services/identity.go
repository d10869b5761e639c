package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"scorer-backend/internal/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidToken is returned for malformed tokens or failed claim checks
	ErrInvalidToken = models.NewUnauthenticatedError("Invalid token")

	// ErrExpiredToken is returned once the exp claim has passed
	ErrExpiredToken = models.NewUnauthenticatedError("Token has expired")

	// ErrUnknownSigningKey is returned when the kid is missing from the key set
	ErrUnknownSigningKey = models.NewUnauthenticatedError("Unable to find appropriate signing key")
)

// Identity is the verified subject of a bearer token
type Identity struct {
	Subject string
	Email   string
}

// IdentityVerifier turns a bearer token into a verified identity
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

// JWKSOptions configures a JWKSVerifier
type JWKSOptions struct {
	Domain   string
	Audience string
	// JWKSURL overrides https://<domain>/.well-known/jwks.json
	JWKSURL    string
	HTTPClient *http.Client
	// MinRefetchInterval bounds how often an unknown kid can trigger a fetch
	MinRefetchInterval time.Duration
}

// JWKSVerifier verifies RS256 tokens against a provider's published key set
type JWKSVerifier struct {
	jwksURL    string
	issuer     string
	audience   string
	client     *http.Client
	minRefetch time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	lastFetch time.Time
}

// NewJWKSVerifier creates a verifier for the given provider domain
func NewJWKSVerifier(opts JWKSOptions) *JWKSVerifier {
	domain := strings.TrimSuffix(strings.TrimPrefix(opts.Domain, "https://"), "/")
	v := &JWKSVerifier{
		jwksURL:    opts.JWKSURL,
		issuer:     "https://" + domain + "/",
		audience:   opts.Audience,
		client:     opts.HTTPClient,
		minRefetch: opts.MinRefetchInterval,
		keys:       make(map[string]*rsa.PublicKey),
	}
	if v.jwksURL == "" {
		v.jwksURL = "https://" + domain + "/.well-known/jwks.json"
	}
	if v.client == nil {
		v.client = &http.Client{Timeout: 10 * time.Second}
	}
	if v.minRefetch == 0 {
		v.minRefetch = 30 * time.Second
	}
	return v
}

// Verify checks signature, algorithm, audience, issuer and expiry
func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, ErrUnknownSigningKey):
			return nil, ErrUnknownSigningKey
		default:
			log.Debug().Err(err).Msg("Token verification failed")
			return nil, ErrInvalidToken
		}
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{Subject: claims.Subject, Email: claims.Email}, nil
}

func (v *JWKSVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownSigningKey
		}
		if key, ok := v.lookup(kid); ok {
			return key, nil
		}

		if v.canRefetch() {
			if err := v.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to refresh signing keys")
			}
			if key, ok := v.lookup(kid); ok {
				return key, nil
			}
		}
		return nil, ErrUnknownSigningKey
	}
}

func (v *JWKSVerifier) lookup(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok := v.keys[kid]
	return key, ok
}

func (v *JWKSVerifier) canRefetch() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return time.Since(v.lastFetch) >= v.minRefetch
}

// Refresh fetches the key set and replaces the cached keys
func (v *JWKSVerifier) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build jwks request: %w", err)
	}

	v.mu.Lock()
	v.lastFetch = time.Now()
	v.mu.Unlock()

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set jsonWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		key, err := rsaPublicKey(jwk)
		if err != nil {
			log.Warn().Err(err).Str("kid", jwk.Kid).Msg("Skipping malformed signing key")
			continue
		}
		keys[jwk.Kid] = key
	}

	v.mu.Lock()
	v.keys = keys
	v.mu.Unlock()

	log.Debug().Int("keys", len(keys)).Msg("Signing keys refreshed")
	return nil
}

// StartRefresh schedules a periodic key refresh. The caller shuts the
// returned scheduler down.
func (v *JWKSVerifier) StartRefresh(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := v.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("Scheduled signing key refresh failed")
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule jwks refresh: %w", err)
	}

	sched.Start()
	return sched, nil
}

func rsaPublicKey(jwk jsonWebKey) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	if len(n) == 0 || len(e) == 0 {
		return nil, errors.New("empty key component")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}
