package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/opsgate/unit-sentinel/internal/transition"
)

// Slack caps a single message at 50 blocks; two are reserved for the
// header and the context footer, leaving the rest for transitions.
const (
	slackBlockLimit       = 50
	slackReservedBlocks   = 2
	slackBlocksPerMessage = slackBlockLimit - slackReservedBlocks
)

// SlackNotifier posts unit transition alerts to a Slack incoming
// webhook, splitting large batches across messages to respect the
// Block Kit block limit.
type SlackNotifier struct {
	poster *poster
	now    func() time.Time
}

// SlackOption adjusts SlackNotifier construction.
type SlackOption func(*slackSettings)

type slackSettings struct {
	policy postPolicy
	now    func() time.Time
}

// WithSlackPacing overrides the delivery pacing used for Slack posts.
func WithSlackPacing(rateEvery time.Duration, burst int, backoffInitial, backoffMax, backoffBudget time.Duration) SlackOption {
	return func(s *slackSettings) {
		s.policy.rateEvery = rateEvery
		s.policy.rateBurst = burst
		s.policy.backoffInitial = backoffInitial
		s.policy.backoffMax = backoffMax
		s.policy.backoffBudget = backoffBudget
	}
}

func withSlackClock(now func() time.Time) SlackOption {
	return func(s *slackSettings) {
		s.now = now
	}
}

// NewSlackNotifier builds a Slack webhook notifier. An empty webhook
// URL yields a no-op notifier so callers need not special-case
// unconfigured Slack.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop()
	}

	settings := slackSettings{
		policy: defaultPolicy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &SlackNotifier{
		poster: newPoster(logger.With().Str("notifier", "slack").Logger(), "slack", webhookURL, "application/json", settings.policy),
		now:    settings.now,
	}
}

// Notify posts the transitions for one target, one Slack message per
// chunk of blocks.
func (n *SlackNotifier) Notify(ctx context.Context, target string, transitions []transition.UnitTransition) error {
	if n == nil || len(transitions) == 0 {
		return nil
	}

	chunks := chunkTransitions(transitions, slackBlocksPerMessage)
	for i, chunk := range chunks {
		if err := n.poster.await(ctx, target); err != nil {
			return fmt.Errorf("slack rate limiter: %w", err)
		}

		msg := n.buildMessage(target, chunk, i+1, len(chunks), len(transitions))
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode slack message: %w", err)
		}
		if err := n.poster.deliver(ctx, payload); err != nil {
			return fmt.Errorf("post slack message %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

func (n *SlackNotifier) buildMessage(target string, transitions []transition.UnitTransition, part, parts, total int) slack.WebhookMessage {
	header := fmt.Sprintf("Target %s: %d unit transition(s)", target, total)
	if parts > 1 {
		header = fmt.Sprintf("%s (%d/%d)", header, part, parts)
	}

	blocks := make([]slack.Block, 0, len(transitions)+slackReservedBlocks)
	blocks = append(blocks, slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, header, false, false),
	))
	for _, tr := range transitions {
		blocks = append(blocks, transitionBlock(tr))
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("unit-sentinel | %s", n.now().UTC().Format(time.RFC3339)), false, false),
	))

	return slack.WebhookMessage{
		Text:   header,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func transitionBlock(tr transition.UnitTransition) slack.Block {
	text := fmt.Sprintf("*%s*: `%s` → `%s`\n%s",
		tr.Name, tr.Previous.String(), tr.Current.String(), tr.Description)
	if tr.Health != nil {
		text = fmt.Sprintf("%s\nhealth %d → %d (%+d)",
			text, tr.Health.Previous, tr.Health.Current, tr.Health.Delta)
	}
	return slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
		nil, nil,
	)
}

func chunkTransitions(transitions []transition.UnitTransition, size int) [][]transition.UnitTransition {
	if size <= 0 || len(transitions) == 0 {
		return nil
	}
	chunks := make([][]transition.UnitTransition, 0, (len(transitions)+size-1)/size)
	for start := 0; start < len(transitions); start += size {
		end := start + size
		if end > len(transitions) {
			end = len(transitions)
		}
		chunks = append(chunks, transitions[start:end])
	}
	return chunks
}
