package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/glycoshape/glyco/pkg/buildtime"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenStore keeps tokens for a client.
//
// Implementations may persist tokens; SetTokens and Clear report failures
// of that.
type TokenStore interface {
	// Tokens returns (access token, refresh token). Empty when not logged in.
	Tokens() (string, string)

	SetTokens(auth.Tokens) error

	// Clear forgets tokens. It is called when the session is expired.
	Clear() error
}

type memoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

// NewMemoryTokens returns a TokenStore holding tokens only in memory.
func NewMemoryTokens(t auth.Tokens) TokenStore {
	return &memoryTokens{access: t.AccessToken, refresh: t.RefreshToken}
}

func (m *memoryTokens) Tokens() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh
}

func (m *memoryTokens) SetTokens(t auth.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = t.AccessToken
	if t.RefreshToken != "" {
		m.refresh = t.RefreshToken
	}
	return nil
}

func (m *memoryTokens) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
	return nil
}

// expired tells the access token is a JWT which has expired already.
//
// Tokens which are not JWT, or without "exp", are never expired here;
// the server will tell with 401.
func expired(access string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !time.Now().Before(claims.ExpiresAt.Time)
}

func (c *client) postAuth(ctx context.Context, path string, payload any, messageFor MessageFor) (auth.Tokens, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return auth.Tokens{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apipath("api", "auth", path), bytes.NewReader(body))
	if err != nil {
		return auth.Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", buildtime.UserAgent())

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return auth.Tokens{}, gerr.Transport(err)
	}
	defer resp.Body.Close()

	tokens := auth.Tokens{}
	if err := unmarshalJsonResponse(resp, &tokens, messageFor); err != nil {
		return auth.Tokens{}, err
	}
	return tokens, nil
}

func (c *client) Login(ctx context.Context, req auth.LoginRequest) (auth.Tokens, error) {
	tokens, err := c.postAuth(ctx, "login", req, MessageFor{
		Status4xx: "wrong email or password",
	})
	if err != nil {
		return auth.Tokens{}, err
	}
	if err := c.tokens.SetTokens(tokens); err != nil {
		return tokens, err
	}
	return tokens, nil
}

func (c *client) Register(ctx context.Context, req auth.RegisterRequest) (auth.Tokens, error) {
	tokens, err := c.postAuth(ctx, "register", req, MessageFor{
		Status4xx: "registration is rejected",
	})
	if err != nil {
		return auth.Tokens{}, err
	}
	if err := c.tokens.SetTokens(tokens); err != nil {
		return tokens, err
	}
	return tokens, nil
}

// expire forgets tokens and returns session-expired error caused by cause.
func (c *client) expire(cause error) error {
	expired := gerr.SessionExpired(cause)
	if err := c.tokens.Clear(); err != nil {
		return errors.Join(expired, fmt.Errorf("failed to forget tokens: %w", err))
	}
	return expired
}

// Refresh exchanges the refresh token.
//
// When it fails, tokens are cleared and the error is a session-expired one.
func (c *client) Refresh(ctx context.Context) (auth.Tokens, error) {
	_, refresh := c.tokens.Tokens()
	if refresh == "" {
		return auth.Tokens{}, c.expire(errors.New("no refresh token"))
	}

	tokens, err := c.postAuth(
		ctx, "refresh-token", auth.RefreshRequest{RefreshToken: refresh},
		MessageFor{Status4xx: "refresh token is rejected"},
	)
	if err != nil {
		if gerr.KindOf(err) == gerr.KindTransport {
			return auth.Tokens{}, err
		}
		return auth.Tokens{}, c.expire(err)
	}
	if err := c.tokens.SetTokens(tokens); err != nil {
		return tokens, err
	}
	return tokens, nil
}
