// Package gmail is the mailbox source: a thin REST client over the Gmail API
// with OAuth token storage and refresh handled through the settings table.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"
	pageSize       = 50
)

// Config holds the OAuth application credentials and mailbox settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Label        string
	// BaseURL overrides the Gmail API endpoint. Used in tests.
	BaseURL string
	// HTTPClient bypasses the OAuth transport entirely. Used in tests.
	HTTPClient *http.Client
}

// Ref identifies a message in the mailbox listing.
type Ref struct {
	ID string `json:"id"`
}

// Message is the fetched content of a single email.
type Message struct {
	ID         string
	Subject    string
	From       string
	ReceivedAt time.Time
	Body       string
}

// Client pages through a labeled mailbox and fetches message content.
type Client struct {
	cfg      Config
	settings SettingsStore
	log      *zap.Logger
}

// NewClient returns a configured Client.
func NewClient(cfg Config, settings SettingsStore, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Label == "" {
		cfg.Label = "Job Alerts"
	}
	return &Client{cfg: cfg, settings: settings, log: log}
}

// ListMessageRefs returns up to limit message refs under the configured
// label, following nextPageToken cursors as needed. A missing label is not an
// error: there is simply nothing to ingest yet.
func (c *Client) ListMessageRefs(ctx context.Context, limit int) ([]Ref, error) {
	hc, err := c.httpClient(ctx)
	if err != nil {
		return nil, err
	}

	labelID, err := c.findLabelID(ctx, hc)
	if err != nil {
		return nil, err
	}
	if labelID == "" {
		c.log.Warn("gmail label not found", zap.String("label", c.cfg.Label))
		return nil, nil
	}

	refs := make([]Ref, 0, limit)
	pageToken := ""
	for len(refs) < limit {
		q := url.Values{}
		q.Set("labelIds", labelID)
		q.Set("maxResults", strconv.Itoa(pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page struct {
			Messages      []Ref  `json:"messages"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := c.getJSON(ctx, hc, "/users/me/messages?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		refs = append(refs, page.Messages...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// GetMessage fetches a message in full format and extracts subject, sender,
// received time and a plain-text body, preferring text/plain parts and
// falling back to text/html and finally the snippet.
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	hc, err := c.httpClient(ctx)
	if err != nil {
		return nil, err
	}

	var raw struct {
		ID           string   `json:"id"`
		Snippet      string   `json:"snippet"`
		InternalDate string   `json:"internalDate"`
		Payload      *payload `json:"payload"`
	}
	if err := c.getJSON(ctx, hc, "/users/me/messages/"+url.PathEscape(id)+"?format=full", &raw); err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	msg := &Message{ID: raw.ID, ReceivedAt: time.Now().UTC()}
	if millis, err := strconv.ParseInt(raw.InternalDate, 10, 64); err == nil {
		msg.ReceivedAt = time.UnixMilli(millis).UTC()
	}
	if raw.Payload != nil {
		for _, h := range raw.Payload.Headers {
			switch h.Name {
			case "Subject":
				msg.Subject = h.Value
			case "From":
				msg.From = h.Value
			}
		}
		msg.Body = bodyText(raw.Payload, "text/plain")
		if msg.Body == "" {
			msg.Body = bodyText(raw.Payload, "text/html")
		}
	}
	if msg.Body == "" {
		msg.Body = raw.Snippet
	}
	return msg, nil
}

func (c *Client) findLabelID(ctx context.Context, hc *http.Client) (string, error) {
	var res struct {
		Labels []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"labels"`
	}
	if err := c.getJSON(ctx, hc, "/users/me/labels", &res); err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, l := range res.Labels {
		if l.Name == c.cfg.Label {
			return l.ID, nil
		}
	}
	return "", nil
}

func (c *Client) getJSON(ctx context.Context, hc *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gmail api status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// payload mirrors the recursive MIME structure of a full-format message.
type payload struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []*payload `json:"parts"`
}

// bodyText finds the first part with the given MIME type, depth-first, and
// decodes its base64url content.
func bodyText(p *payload, mimeType string) string {
	if p == nil {
		return ""
	}
	if p.MimeType == mimeType && p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	for _, part := range p.Parts {
		if text := bodyText(part, mimeType); text != "" {
			return text
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
