package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
)

const testSecret = "test-webhook-secret"

type fakeDispatcher struct {
	dispatched []*core.PullRequestContext
	err        error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, prCtx *core.PullRequestContext) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, prCtx)
	return nil
}

func (f *fakeDispatcher) Stop() {}

func newTestHandler(dispatcher core.JobDispatcher) *WebhookHandler {
	cfg := &config.Config{GitHubWebhookSecret: testSecret}
	return NewWebhookHandler(cfg, dispatcher, slog.New(slog.DiscardHandler))
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func pullRequestPayload(t *testing.T, action string) []byte {
	t.Helper()
	event := github.PullRequestEvent{
		Action: github.Ptr(action),
		Repo: &github.Repository{
			Name:     github.Ptr("hello-world"),
			FullName: github.Ptr("octocat/hello-world"),
			Owner:    &github.User{Login: github.Ptr("octocat")},
		},
		PullRequest: &github.PullRequest{
			Number: github.Ptr(42),
			Title:  github.Ptr("Add feature"),
			User:   &github.User{Login: github.Ptr("contributor")},
			Head:   &github.PullRequestBranch{SHA: github.Ptr("abc123")},
			Base:   &github.PullRequestBranch{SHA: github.Ptr("def456")},
		},
		Installation: &github.Installation{ID: github.Ptr(int64(777))},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func webhookRequest(payload []byte, eventType, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/github", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-GitHub-Delivery", "delivery-uuid-1")
	req.Header.Set("X-Hub-Signature-256", signature)
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) webhookResponse {
	t.Helper()
	var resp webhookResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandle_AcceptsValidOpenedEvent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	payload := pullRequestPayload(t, "opened")
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "pull_request", sign(testSecret, payload)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, string(core.ActionPROpened), resp.Action)
	assert.Equal(t, "delivery-uuid-1", resp.JobID, "the delivery id becomes the job id")

	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, "octocat/hello-world", dispatcher.dispatched[0].RepoFullName)
	assert.Equal(t, 42, dispatcher.dispatched[0].PRNumber)
	assert.Equal(t, "abc123", dispatcher.dispatched[0].HeadSHA)
}

func TestHandle_RejectsTamperedPayload(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	payload := pullRequestPayload(t, "opened")
	signature := sign(testSecret, payload)
	payload[0] ^= 0x01 // single flipped bit

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "pull_request", signature))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, dispatcher.dispatched, "a rejected delivery must not be interpreted")
}

func TestHandle_RejectsWrongSecret(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	payload := pullRequestPayload(t, "opened")
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "pull_request", sign("wrong-secret", payload)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, dispatcher.dispatched)
}

func TestHandle_IgnoresUnsupportedAction(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	payload := pullRequestPayload(t, "labeled")
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "pull_request", sign(testSecret, payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "ignored", resp.Status)
	assert.Empty(t, dispatcher.dispatched)
}

func TestHandle_AnswersPing(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	payload := []byte(`{"zen": "Keep it logically awesome.", "hook_id": 1}`)
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "ping", sign(testSecret, payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "ignored", resp.Status)
	assert.Equal(t, "pong", resp.Action)
	assert.Empty(t, dispatcher.dispatched)
}

func TestHandle_AcknowledgesInstallationEvent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	payload := []byte(`{"action": "created", "installation": {"id": 777}}`)
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "installation", sign(testSecret, payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "ignored", resp.Status)
	assert.Empty(t, dispatcher.dispatched)
}

func TestHandle_IgnoresNonPullRequestEvent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	payload := []byte(`{"action": "opened", "issue": {"number": 1}}`)
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "issues", sign(testSecret, payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "ignored", resp.Status)
	assert.Empty(t, dispatcher.dispatched)
}

func TestHandle_RejectsIncompletePayload(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := newTestHandler(dispatcher)

	event := github.PullRequestEvent{Action: github.Ptr("opened")}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "pull_request", sign(testSecret, payload)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, dispatcher.dispatched)
}

func TestHandle_QueueFullYieldsServiceUnavailable(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("job queue is full")}
	h := newTestHandler(dispatcher)

	payload := pullRequestPayload(t, "synchronize")
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(payload, "pull_request", sign(testSecret, payload)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "rejected", resp.Status)
}
