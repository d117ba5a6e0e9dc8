package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsgate/unit-sentinel/internal/transition"
)

// DefaultWebhookTemplate is the payload rendered when no custom
// template is configured.
const DefaultWebhookTemplate = `{"target":"{{ .Target }}","transitions":{{ toJson .Transitions }}}`

// WebhookPayload is the data handed to the webhook template.
type WebhookPayload struct {
	Target      string
	Transitions []transition.UnitTransition
	GeneratedAt time.Time
}

// WebhookNotifier posts templated JSON payloads to a generic HTTP
// endpoint.
type WebhookNotifier struct {
	poster   *poster
	template *template.Template
	now      func() time.Time
}

// NewWebhookNotifier builds a generic webhook notifier. An empty
// endpoint URL returns (nil, nil) so callers can skip wiring it. The
// template text defaults to DefaultWebhookTemplate when empty.
func NewWebhookNotifier(logger zerolog.Logger, endpoint, templateText string) (*WebhookNotifier, error) {
	if endpoint == "" {
		return nil, nil
	}
	if templateText == "" {
		templateText = DefaultWebhookTemplate
	}

	tmpl, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v interface{}) (string, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}).Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		poster:   newPoster(logger.With().Str("notifier", "webhook").Logger(), "webhook", endpoint, "application/json", defaultPolicy),
		template: tmpl,
		now:      time.Now,
	}, nil
}

// Notify renders the payload template once per batch and posts it.
func (n *WebhookNotifier) Notify(ctx context.Context, target string, transitions []transition.UnitTransition) error {
	if n == nil || len(transitions) == 0 {
		return nil
	}

	payload := WebhookPayload{
		Target:      target,
		Transitions: transitions,
		GeneratedAt: n.now().UTC(),
	}

	var body bytes.Buffer
	if err := n.template.Execute(&body, payload); err != nil {
		return fmt.Errorf("render webhook payload: %w", err)
	}

	if err := n.poster.await(ctx, target); err != nil {
		return fmt.Errorf("webhook rate limiter: %w", err)
	}
	if err := n.poster.deliver(ctx, body.Bytes()); err != nil {
		return fmt.Errorf("post webhook payload: %w", err)
	}
	return nil
}
