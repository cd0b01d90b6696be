package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"oppradar/ingest-service/internal/api"
	"oppradar/ingest-service/internal/feedback"
	"oppradar/ingest-service/internal/ingest"
	"oppradar/ingest-service/internal/model"
	"oppradar/ingest-service/internal/store"
)

type fakeRunner struct {
	lastOpts ingest.Options
	sum      ingest.Summary
}

func (f *fakeRunner) Run(_ context.Context, opts ingest.Options) (ingest.Summary, error) {
	f.lastOpts = opts
	return f.sum, nil
}

type fakeRepo struct {
	opps     []model.Opportunity
	settings map[string]json.RawMessage
}

func (f *fakeRepo) List(context.Context) ([]model.Opportunity, error) { return f.opps, nil }

func (f *fakeRepo) GetSetting(_ context.Context, key string) (json.RawMessage, error) {
	v, ok := f.settings[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeRepo) SetSetting(_ context.Context, key string, value json.RawMessage) error {
	f.settings[key] = value
	return nil
}

type fakeFeedback struct {
	lastAction string
	err        error
}

func (f *fakeFeedback) Record(_ context.Context, _ int64, action, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastAction = action
	return feedback.StatusSaved, nil
}

type fakeAuth struct{ exchanged string }

func (f *fakeAuth) AuthURL(string) string { return "https://accounts.example/consent" }
func (f *fakeAuth) Exchange(_ context.Context, code string) error {
	f.exchanged = code
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeRunner, *fakeRepo, *fakeFeedback, *fakeAuth) {
	t.Helper()
	runner := &fakeRunner{sum: ingest.Summary{Processed: 2, Inserted: 1, Skipped: 1}}
	repo := &fakeRepo{settings: make(map[string]json.RawMessage)}
	fb := &fakeFeedback{}
	auth := &fakeAuth{}

	mux := http.NewServeMux()
	api.NewHandler(runner, repo, fb, auth, zap.NewNop()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, runner, repo, fb, auth
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

// ── /health ────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

// ── /ingest ────────────────────────────────────────────────────────────────

func TestIngest_PassesForceAndLimit(t *testing.T) {
	srv, runner, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ingest?force=true&limit=10")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !runner.lastOpts.Force || runner.lastOpts.Limit != 10 {
		t.Errorf("opts = %+v", runner.lastOpts)
	}
	if body := decodeBody(t, resp); body["processed"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestIngest_RejectsBadLimit(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	for _, limit := range []string{"0", "-5", "abc"} {
		resp, err := http.Get(srv.URL + "/ingest?limit=" + limit)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", limit, resp.StatusCode)
		}
	}
}

// ── /opportunities/{id}/feedback ───────────────────────────────────────────

func TestFeedback_RecordsAction(t *testing.T) {
	srv, _, _, fb, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/opportunities/7/feedback", "application/json",
		strings.NewReader(`{"action":"LIKE"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if fb.lastAction != "LIKE" {
		t.Errorf("recorded action = %q", fb.lastAction)
	}
	if body := decodeBody(t, resp); body["status"] != "SAVED" {
		t.Errorf("body = %v", body)
	}
}

func TestFeedback_ValidationErrorIs400(t *testing.T) {
	srv, _, _, fb, _ := newTestServer(t)
	fb.err = &feedback.ValidationError{Msg: "unknown feedback action"}

	resp, err := http.Post(srv.URL+"/opportunities/7/feedback", "application/json",
		strings.NewReader(`{"action":"UPVOTE"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFeedback_MissingOpportunityIs404(t *testing.T) {
	srv, _, _, fb, _ := newTestServer(t)
	fb.err = fmt.Errorf("apply status SAVED: %w", store.ErrNotFound)

	resp, err := http.Post(srv.URL+"/opportunities/999/feedback", "application/json",
		strings.NewReader(`{"action":"LIKE"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFeedback_MissingActionIs400(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/opportunities/7/feedback", "application/json",
		strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// ── /settings/{key} ────────────────────────────────────────────────────────

func TestSettings_RoundTrip(t *testing.T) {
	srv, _, repo, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/settings/user_preferences", "application/json",
		strings.NewReader(`{"keywords":["Go"]}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	if string(repo.settings["user_preferences"]) != `{"keywords":["Go"]}` {
		t.Errorf("stored = %s", repo.settings["user_preferences"])
	}

	resp, err = http.Get(srv.URL + "/settings/user_preferences")
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody(t, resp)
	kws, _ := body["keywords"].([]any)
	if len(kws) != 1 || kws[0] != "Go" {
		t.Errorf("GET body = %v", body)
	}
}

func TestSettings_UnknownKeyIs404(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/settings/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSettings_RejectsInvalidJSON(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/settings/user_preferences", "application/json",
		strings.NewReader(`{broken`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// ── /auth/gmail ────────────────────────────────────────────────────────────

func TestAuthURL(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/auth/gmail/url")
	if err != nil {
		t.Fatal(err)
	}
	if body := decodeBody(t, resp); body["url"] != "https://accounts.example/consent" {
		t.Errorf("body = %v", body)
	}
}

func TestAuthCallback_ExchangesCode(t *testing.T) {
	srv, _, _, _, auth := newTestServer(t)
	resp, err := http.Get(srv.URL + "/auth/gmail/callback?code=abc123")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if auth.exchanged != "abc123" {
		t.Errorf("exchanged = %q", auth.exchanged)
	}
}

func TestAuthCallback_MissingCodeIs400(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/auth/gmail/callback")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
