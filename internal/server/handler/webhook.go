// Package handler provides HTTP handlers for the BoxedBot application.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"
	"github.com/google/uuid"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given configuration and dispatcher.
func NewWebhookHandler(cfg *config.Config, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// webhookResponse is the acknowledgement body returned to the webhook sender.
type webhookResponse struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
	JobID  string `json:"job_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Handle processes GitHub webhook requests. The signature is verified over
// the raw body before any parsing happens; payloads that fail verification
// are rejected without being interpreted.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHubWebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		h.respond(w, http.StatusUnauthorized, webhookResponse{Status: "rejected", Error: "invalid signature"})
		return
	}

	eventType := github.WebHookType(r)
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "type", eventType, "error", err)
		h.respond(w, http.StatusBadRequest, webhookResponse{Status: "rejected", Error: "could not parse webhook"})
		return
	}

	var prEvent *github.PullRequestEvent
	switch e := event.(type) {
	case *github.PullRequestEvent:
		prEvent = e
	case *github.PingEvent:
		h.logger.Info("received ping", "zen", e.GetZen())
		h.respond(w, http.StatusOK, webhookResponse{Status: "ignored", Action: "pong"})
		return
	case *github.InstallationEvent:
		h.logger.Info("installation event",
			"action", e.GetAction(), "installation_id", e.GetInstallation().GetID())
		h.respond(w, http.StatusOK, webhookResponse{Status: "ignored"})
		return
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		h.respond(w, http.StatusOK, webhookResponse{Status: "ignored"})
		return
	}

	action := core.ClassifyEvent(eventType, prEvent.GetAction())
	if action == core.ActionIgnored {
		h.logger.Debug("ignoring pull request action", "action", prEvent.GetAction())
		h.respond(w, http.StatusOK, webhookResponse{Status: "ignored", Action: string(action)})
		return
	}

	prCtx, err := core.ContextFromPullRequestEvent(prEvent)
	if err != nil {
		h.logger.Error("pull request payload is missing required fields", "error", err)
		h.respond(w, http.StatusBadRequest, webhookResponse{Status: "rejected", Error: err.Error()})
		return
	}

	// The delivery id makes retried deliveries traceable back to one job.
	prCtx.JobID = github.DeliveryID(r)
	if prCtx.JobID == "" {
		prCtx.JobID = uuid.NewString()
	}

	if err := h.dispatcher.Dispatch(r.Context(), prCtx); err != nil {
		h.logger.Error("failed to dispatch analysis job", "error", err, "repo", prCtx.RepoFullName)
		h.respond(w, http.StatusServiceUnavailable, webhookResponse{Status: "rejected", Error: "job queue is full"})
		return
	}

	h.logger.Info("analysis job dispatched",
		"job_id", prCtx.JobID, "repo", prCtx.RepoFullName, "pr", prCtx.PRNumber, "action", action)
	h.respond(w, http.StatusAccepted, webhookResponse{Status: "processing", Action: string(action), JobID: prCtx.JobID})
}

func (h *WebhookHandler) respond(w http.ResponseWriter, status int, body webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write webhook response", "error", err)
	}
}
