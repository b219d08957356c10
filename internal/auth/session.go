// Package auth manages the Flashnet bearer session obtained by signing a
// server-issued challenge with the user's wallet.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
)

var (
	ErrChallenge = errors.New("auth challenge failed")
	ErrSign      = errors.New("challenge signing failed")
	ErrVerify    = errors.New("auth verify failed")
	ErrCleared   = errors.New("session cleared during authentication")
)

// SignFunc signs a challenge string and returns the signature. It may block
// until the user approves the request in their wallet.
type SignFunc func(ctx context.Context, message string) (string, error)

// API is the subset of the transport the session manager needs.
type API interface {
	Do(ctx context.Context, req transport.Request) ([]byte, error)
}

type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateAuthenticating  State = "AUTHENTICATING"
	StateAuthenticated   State = "AUTHENTICATED"
)

// Status is a read-only view of the session for diagnostics.
type Status struct {
	State     State         `json:"state"`
	PublicKey string        `json:"publicKey,omitempty"`
	ExpiresAt time.Time     `json:"expiresAt,omitempty"`
	ExpiresIn time.Duration `json:"expiresIn,omitempty"`
}

// Config holds configuration for the session manager
type Config struct {
	API           API
	Lifetime      time.Duration    // Session lifetime after verify
	RefreshBuffer time.Duration    // Refresh when this close to expiry
	Now           func() time.Time // Clock, for tests
	Logger        *logrus.Logger
}

type session struct {
	token     string
	expiresAt time.Time
	publicKey string
	sign      SignFunc
}

// Manager owns one wallet's bearer session. Concurrent Authenticate calls
// share a single challenge/verify exchange.
type Manager struct {
	api           API
	lifetime      time.Duration
	refreshBuffer time.Duration
	now           func() time.Time
	logger        *logrus.Logger

	flight singleflight.Group

	mu             sync.RWMutex
	current        *session
	authenticating bool
	// epoch advances on every Clear.
	epoch uint64
}

// NewManager creates a session manager
func NewManager(cfg Config) *Manager {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = constants.SessionLifetime
	}
	if cfg.RefreshBuffer <= 0 {
		cfg.RefreshBuffer = constants.RefreshBuffer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Manager{
		api:           cfg.API,
		lifetime:      cfg.Lifetime,
		refreshBuffer: cfg.RefreshBuffer,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
}

type challengeRequest struct {
	PublicKey string `json:"publicKey"`
}

type challengeResponse struct {
	Challenge       string `json:"challenge"`
	ChallengeString string `json:"challengeString"`
}

type verifyRequest struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	AccessToken string `json:"accessToken"`
}

// Authenticate runs the challenge/verify exchange for publicKey. If an
// exchange is already in flight the call waits for and returns its result.
// Any failure clears the session.
func (m *Manager) Authenticate(ctx context.Context, publicKey string, sign SignFunc) error {
	if strings.TrimSpace(publicKey) == "" {
		return fmt.Errorf("publicKey is required")
	}
	if sign == nil {
		return fmt.Errorf("sign function is required")
	}

	ch := m.flight.DoChan("authenticate", func() (any, error) {
		return nil, m.exchange(ctx, publicKey, sign)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (m *Manager) exchange(ctx context.Context, publicKey string, sign SignFunc) error {
	m.setAuthenticating(true)
	defer m.setAuthenticating(false)

	m.mu.RLock()
	epoch := m.epoch
	m.mu.RUnlock()

	log := m.logger.WithField("publicKey", shortKey(publicKey))
	log.Debug("requesting auth challenge")

	token, err := m.runExchange(ctx, publicKey, sign)
	if err != nil {
		m.Clear()
		log.WithError(err).Warn("authentication failed")
		return err
	}

	issued := m.now()
	expiresAt := tokenExpiry(token, issued.Add(m.lifetime))

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		log.Info("session cleared while authenticating, discarding token")
		return ErrCleared
	}
	m.current = &session{
		token:     token,
		expiresAt: expiresAt,
		publicKey: publicKey,
		sign:      sign,
	}
	m.mu.Unlock()

	log.WithField("expiresAt", expiresAt.Format(time.RFC3339)).Info("authenticated")
	return nil
}

func (m *Manager) runExchange(ctx context.Context, publicKey string, sign SignFunc) (string, error) {
	body, err := m.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/challenge",
		Body:   challengeRequest{PublicKey: publicKey},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChallenge, err)
	}
	var challenge challengeResponse
	if err := json.Unmarshal(body, &challenge); err != nil {
		return "", fmt.Errorf("%w: malformed response: %w", ErrChallenge, err)
	}
	if challenge.ChallengeString == "" {
		return "", fmt.Errorf("%w: empty challengeString", ErrChallenge)
	}

	signature, err := sign(ctx, challenge.ChallengeString)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSign, err)
	}
	if signature == "" {
		return "", fmt.Errorf("%w: empty signature", ErrSign)
	}

	body, err = m.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/verify",
		Body:   verifyRequest{PublicKey: publicKey, Signature: signature},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVerify, err)
	}
	var verified verifyResponse
	if err := json.Unmarshal(body, &verified); err != nil {
		return "", fmt.Errorf("%w: malformed response: %w", ErrVerify, err)
	}
	if verified.AccessToken == "" {
		return "", fmt.Errorf("%w: empty accessToken", ErrVerify)
	}
	return verified.AccessToken, nil
}

// ValidToken returns the bearer token if the session is live. Within the
// refresh buffer it first re-authenticates with the stored key and signer;
// a failed refresh reports no token instead of an error.
func (m *Manager) ValidToken(ctx context.Context) (string, bool) {
	m.mu.RLock()
	s := m.current
	m.mu.RUnlock()

	if s == nil {
		return "", false
	}
	now := m.now()
	if !now.Before(s.expiresAt) {
		return "", false
	}
	if s.expiresAt.Sub(now) > m.refreshBuffer {
		return s.token, true
	}

	if err := m.Authenticate(ctx, s.publicKey, s.sign); err != nil {
		m.logger.WithError(err).Warn("silent token refresh failed")
		return "", false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "", false
	}
	return m.current.token, true
}

// IsAuthenticated reports whether an unexpired session exists.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil && m.now().Before(m.current.expiresAt)
}

// Clear drops the session. Safe to call repeatedly.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.current = nil
	m.epoch++
	m.mu.Unlock()
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.authenticating {
		st := Status{State: StateAuthenticating}
		if m.current != nil {
			st.PublicKey = m.current.publicKey
		}
		return st
	}
	now := m.now()
	if m.current == nil || !now.Before(m.current.expiresAt) {
		return Status{State: StateUnauthenticated}
	}
	return Status{
		State:     StateAuthenticated,
		PublicKey: m.current.publicKey,
		ExpiresAt: m.current.expiresAt,
		ExpiresIn: m.current.expiresAt.Sub(now),
	}
}

func (m *Manager) setAuthenticating(v bool) {
	m.mu.Lock()
	m.authenticating = v
	m.mu.Unlock()
}

// tokenExpiry caps fallback at the token's own exp claim when the token is a
// JWT. Signatures are not checked; the server remains the authority.
func tokenExpiry(token string, fallback time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	if exp.Time.Before(fallback) {
		return exp.Time
	}
	return fallback
}

func shortKey(k string) string {
	if len(k) <= 12 {
		return k
	}
	return k[:6] + "..." + k[len(k)-4:]
}
