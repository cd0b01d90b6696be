package gmail_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"oppradar/ingest-service/internal/gmail"
)

type stubSettings struct{}

func (stubSettings) GetSetting(context.Context, string) (json.RawMessage, error) {
	return nil, fmt.Errorf("not found")
}
func (stubSettings) SetSetting(context.Context, string, json.RawMessage) error { return nil }

func newTestClient(t *testing.T, handler http.Handler) (*gmail.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := gmail.NewClient(gmail.Config{
		Label:      "Job Alerts",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}, stubSettings{}, zap.NewNop())
	return c, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ── ListMessageRefs ────────────────────────────────────────────────────────

func TestListMessageRefs_MissingLabelReturnsEmpty(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/me/labels" {
			writeJSON(w, map[string]any{"labels": []map[string]string{{"id": "L1", "name": "Inbox"}}})
			return
		}
		t.Errorf("unexpected request %s", r.URL.Path)
	}))

	refs, err := c.ListMessageRefs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListMessageRefs returned unexpected error: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("expected no refs without the label, got %d", len(refs))
	}
}

func TestListMessageRefs_FollowsPageTokensUpToLimit(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me/labels":
			writeJSON(w, map[string]any{"labels": []map[string]string{{"id": "L7", "name": "Job Alerts"}}})
		case "/users/me/messages":
			if got := r.URL.Query().Get("labelIds"); got != "L7" {
				t.Errorf("labelIds = %q, want L7", got)
			}
			if r.URL.Query().Get("pageToken") == "" {
				writeJSON(w, map[string]any{
					"messages":      []map[string]string{{"id": "m1"}, {"id": "m2"}},
					"nextPageToken": "p2",
				})
			} else {
				writeJSON(w, map[string]any{
					"messages": []map[string]string{{"id": "m3"}, {"id": "m4"}},
				})
			}
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))

	refs, err := c.ListMessageRefs(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListMessageRefs returned unexpected error: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs after truncation, got %d", len(refs))
	}
	if refs[2].ID != "m3" {
		t.Errorf("refs[2].ID = %q, want m3", refs[2].ID)
	}
}

// ── GetMessage ─────────────────────────────────────────────────────────────

func TestGetMessage_DecodesPlainTextPart(t *testing.T) {
	body := base64.RawURLEncoding.EncodeToString([]byte("We are hiring a Go engineer."))
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":           "m1",
			"internalDate": "1756500000000",
			"snippet":      "We are hiring…",
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers": []map[string]string{
					{"name": "Subject", "value": "Go Engineer at Acme"},
					{"name": "From", "value": "jobs@acme.example"},
				},
				"parts": []map[string]any{
					{"mimeType": "text/html", "body": map[string]string{"data": base64.RawURLEncoding.EncodeToString([]byte("<b>hi</b>"))}},
					{"mimeType": "text/plain", "body": map[string]string{"data": body}},
				},
			},
		})
	}))

	msg, err := c.GetMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetMessage returned unexpected error: %v", err)
	}
	if msg.Subject != "Go Engineer at Acme" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.From != "jobs@acme.example" {
		t.Errorf("From = %q", msg.From)
	}
	if msg.Body != "We are hiring a Go engineer." {
		t.Errorf("Body = %q", msg.Body)
	}
	want := time.UnixMilli(1756500000000).UTC()
	if !msg.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", msg.ReceivedAt, want)
	}
}

func TestGetMessage_FallsBackToSnippet(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":           "m2",
			"internalDate": "1756500000000",
			"snippet":      "short preview only",
			"payload": map[string]any{
				"mimeType": "text/plain",
				"headers":  []map[string]string{{"name": "Subject", "value": "No body"}},
			},
		})
	}))

	msg, err := c.GetMessage(context.Background(), "m2")
	if err != nil {
		t.Fatalf("GetMessage returned unexpected error: %v", err)
	}
	if msg.Body != "short preview only" {
		t.Errorf("Body = %q, want the snippet fallback", msg.Body)
	}
}

func TestGetMessage_APIErrorSurfaces(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))

	if _, err := c.GetMessage(context.Background(), "m3"); err == nil {
		t.Error("expected error on non-200 response")
	}
}
