package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrStateMismatch is returned when the callback state does not match the session.
var ErrStateMismatch = errors.New("state mismatch")

// Config describes the identity provider and the callback location.
type Config struct {
	ClientID     string
	ClientSecret string
	// Domain is the IdP host, e.g. "dev-123.okta.com". A scheme may be included.
	Domain string
	// ServerDomain is this service's public base URL.
	ServerDomain string
	// SessionSecret signs cookie values when set.
	SessionSecret string
}

// Gate drives the authorization-code flow against the session store.
type Gate struct {
	oauth  *oauth2.Config
	store  SessionStore
	secret []byte
}

// NewGate creates a Gate for an Okta-style authorization server.
func NewGate(cfg Config, store SessionStore) *Gate {
	base := strings.TrimSuffix(cfg.Domain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Gate{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  strings.TrimSuffix(cfg.ServerDomain, "/") + "/login/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/oauth2/default/v1/authorize",
				TokenURL: base + "/oauth2/default/v1/token",
			},
		},
		store:  store,
		secret: []byte(cfg.SessionSecret),
	}
}

// Login starts a flow. A new session is issued when the cookie is empty, unknown or forged.
// Parameters:
//   - ctx: request context.
//   - cookie: session cookie value, may be empty.
//
// Returns:
//   - string: cookie value to set.
//   - string: authorization URL to redirect to.
//   - error: non-nil if the session cannot be saved.
func (g *Gate) Login(ctx context.Context, cookie string) (string, string, error) {
	var sess *Session
	sessionID, ok := g.verify(cookie)
	if ok {
		existing, err := g.store.Get(ctx, sessionID)
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return "", "", err
		}
		sess = existing
	}
	if sess == nil {
		id, err := NewSessionID()
		if err != nil {
			return "", "", err
		}
		sessionID, sess = id, &Session{}
	}

	state, err := randomToken(16)
	if err != nil {
		return "", "", err
	}
	sess.State = state
	if err := g.store.Save(ctx, sessionID, sess); err != nil {
		return "", "", err
	}
	return g.sign(sessionID), g.oauth.AuthCodeURL(state), nil
}

// Callback checks state and exchanges code for a token. On success the session
// moves to a fresh ID and the returned cookie value replaces the caller's.
func (g *Gate) Callback(ctx context.Context, cookie, state, code string) (string, error) {
	sessionID, ok := g.verify(cookie)
	if !ok {
		return "", ErrStateMismatch
	}
	sess, err := g.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrStateMismatch
		}
		return "", err
	}
	if sess.State == "" || state != sess.State {
		return "", ErrStateMismatch
	}

	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	newID, err := NewSessionID()
	if err != nil {
		return "", err
	}
	authed := &Session{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
	}
	if err := g.store.Save(ctx, newID, authed); err != nil {
		return "", err
	}
	if err := g.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return "", fmt.Errorf("failed to drop pre-login session: %w", err)
	}
	return g.sign(newID), nil
}

// Session returns the session behind cookie, or nil when there is none.
func (g *Gate) Session(ctx context.Context, cookie string) (*Session, error) {
	sessionID, ok := g.verify(cookie)
	if !ok {
		return nil, nil
	}
	sess, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return sess, err
}

func (g *Gate) sign(id string) string {
	if len(g.secret) == 0 {
		return id
	}
	return id + "." + g.mac(id)
}

// verify returns the session id carried by cookie if its signature holds.
func (g *Gate) verify(cookie string) (string, bool) {
	if cookie == "" {
		return "", false
	}
	if len(g.secret) == 0 {
		return cookie, true
	}
	i := strings.LastIndexByte(cookie, '.')
	if i <= 0 {
		return "", false
	}
	id, sig := cookie[:i], cookie[i+1:]
	if !hmac.Equal([]byte(sig), []byte(g.mac(id))) {
		return "", false
	}
	return id, true
}

func (g *Gate) mac(id string) string {
	h := hmac.New(sha256.New, g.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// CookieMaxAge converts a session TTL to a cookie max-age in seconds.
func CookieMaxAge(ttl time.Duration) int {
	return int(ttl / time.Second)
}
