package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// tokenSettingKey is the settings row the OAuth token blob lives under.
const tokenSettingKey = "gmail_tokens"

// ErrNoToken is returned when no OAuth token has been stored yet. The caller
// should surface the auth URL to the user.
var ErrNoToken = errors.New("gmail tokens not found, authenticate first")

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

const readonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// SettingsStore is the slice of the persistence layer this package needs to
// load and refresh the OAuth token blob.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	SetSetting(ctx context.Context, key string, value json.RawMessage) error
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURL,
		Scopes:       []string{readonlyScope},
		Endpoint:     googleEndpoint,
	}
}

// AuthURL returns the consent URL the user must visit to authorize readonly
// mailbox access. Offline access with forced consent guarantees a refresh
// token on first exchange.
func (c *Client) AuthURL(state string) string {
	return c.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens and persists them.
func (c *Client) Exchange(ctx context.Context, code string) error {
	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return c.saveToken(ctx, tok)
}

func (c *Client) saveToken(ctx context.Context, tok *oauth2.Token) error {
	blob, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := c.settings.SetSetting(ctx, tokenSettingKey, blob); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// httpClient returns an authorized HTTP client, refreshing the stored token
// transparently. Refreshed tokens are written back so the next run does not
// repeat the refresh.
func (c *Client) httpClient(ctx context.Context) (*http.Client, error) {
	if c.cfg.HTTPClient != nil {
		return c.cfg.HTTPClient, nil
	}

	raw, err := c.settings.GetSetting(ctx, tokenSettingKey)
	if err != nil {
		return nil, ErrNoToken
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}

	src := &savingTokenSource{
		ctx:    ctx,
		src:    c.oauthConfig().TokenSource(ctx, &tok),
		client: c,
		last:   tok.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}

// savingTokenSource persists tokens back to settings whenever a refresh
// produced a new access token.
type savingTokenSource struct {
	ctx    context.Context
	src    oauth2.TokenSource
	client *Client
	last   string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.client.saveToken(s.ctx, tok); err != nil {
			s.client.log.Warn("persist refreshed gmail token failed", zap.Error(err))
		}
	}
	return tok, nil
}
