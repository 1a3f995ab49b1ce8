package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "s1", &Session{AccessToken: "tok"}))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Authenticated())

	now = now.Add(2 * time.Hour)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Hour)
	require.NoError(t, store.Save(ctx, "s1", &Session{State: "abc"}))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.State)
	assert.False(t, got.Authenticated())

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, "s2", &Session{}))
	require.NoError(t, store.Delete(ctx, "s2"))
	_, err = store.Get(ctx, "s2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func newTestGate(t *testing.T) (*Gate, *MemoryStore) {
	t.Helper()
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/default/v1/token" {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(idp.Close)

	store := NewMemoryStore(time.Hour)
	gate := NewGate(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Domain:       idp.URL,
		ServerDomain: "http://localhost:8001",
	}, store)
	return gate, store
}

func TestGateLoginAndCallback(t *testing.T) {
	ctx := context.Background()
	gate, store := newTestGate(t)

	sid, redirect, err := gate.Login(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/default/v1/authorize", u.Path)
	assert.Equal(t, "openid profile email", u.Query().Get("scope"))
	assert.Equal(t, "http://localhost:8001/login/callback", u.Query().Get("redirect_uri"))
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	_, err = gate.Callback(ctx, sid, "forged", "good-code")
	assert.ErrorIs(t, err, ErrStateMismatch)
	_, err = gate.Callback(ctx, "unknown", state, "good-code")
	assert.ErrorIs(t, err, ErrStateMismatch)

	authedSID, err := gate.Callback(ctx, sid, state, "good-code")
	require.NoError(t, err)
	require.NotEqual(t, sid, authedSID)

	sess, err := gate.Session(ctx, authedSID)
	require.NoError(t, err)
	require.True(t, sess.Authenticated())
	assert.Equal(t, "tok-1", sess.AccessToken)
	assert.Empty(t, sess.State)

	stored, err := store.Get(ctx, authedSID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", stored.AccessToken)
}

func TestGateCallbackRotatesSessionID(t *testing.T) {
	ctx := context.Background()
	gate, store := newTestGate(t)

	preLogin, redirect, err := gate.Login(ctx, "")
	require.NoError(t, err)
	u, _ := url.Parse(redirect)

	authedSID, err := gate.Callback(ctx, preLogin, u.Query().Get("state"), "good-code")
	require.NoError(t, err)

	sess, err := gate.Session(ctx, preLogin)
	require.NoError(t, err)
	assert.Nil(t, sess, "pre-login cookie must not carry the token")
	_, err = store.Get(ctx, preLogin)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = gate.Callback(ctx, preLogin, u.Query().Get("state"), "good-code")
	assert.ErrorIs(t, err, ErrStateMismatch)

	sess, err = gate.Session(ctx, authedSID)
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
}

func TestGateCallbackExchangeFailure(t *testing.T) {
	ctx := context.Background()
	gate, _ := newTestGate(t)

	sid, redirect, err := gate.Login(ctx, "")
	require.NoError(t, err)
	u, _ := url.Parse(redirect)

	_, err = gate.Callback(ctx, sid, u.Query().Get("state"), "bad-code")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStateMismatch)

	sess, err := gate.Session(ctx, sid)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
}

func TestGateSessionWithoutCookie(t *testing.T) {
	gate, _ := newTestGate(t)
	sess, err := gate.Session(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.False(t, sess.Authenticated())
}

func TestGateSignedCookies(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(Config{ClientID: "c", Domain: "idp.example.com", SessionSecret: "s3cret"}, NewMemoryStore(time.Hour))

	cookie, redirect, err := gate.Login(ctx, "")
	require.NoError(t, err)
	require.Contains(t, cookie, ".")
	u, _ := url.Parse(redirect)
	state := u.Query().Get("state")

	sess, err := gate.Session(ctx, cookie)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, state, sess.State)

	tampered := cookie[:len(cookie)-1] + "x"
	if tampered == cookie {
		tampered = cookie[:len(cookie)-1] + "y"
	}
	sess, err = gate.Session(ctx, tampered)
	require.NoError(t, err)
	assert.Nil(t, sess)
	_, err = gate.Callback(ctx, tampered, state, "code")
	assert.ErrorIs(t, err, ErrStateMismatch)

	again, _, err := gate.Login(ctx, cookie)
	require.NoError(t, err)
	assert.Equal(t, cookie, again)
}
