// Package notify is the delivery boundary: it formats alert and digest
// payloads, logs them, and publishes them on Redis pub/sub channels for
// downstream delivery transports to pick up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"oppradar/ingest-service/internal/model"
)

// Pub/sub channels consumed by the delivery side.
const (
	ChannelAlert  = "EVENT_OPPORTUNITY_ALERT"
	ChannelDigest = "EVENT_DAILY_DIGEST"
)

// Notifier publishes alert and digest events.
type Notifier struct {
	rdb *redis.Client
	log *zap.Logger
}

// New returns a configured Notifier.
func New(rdb *redis.Client, log *zap.Logger) *Notifier {
	return &Notifier{rdb: rdb, log: log}
}

// Alert publishes an immediate high-score alert for a single opportunity.
// Publish failures are logged and swallowed: delivery is best-effort and must
// never fail the ingestion of the opportunity itself.
func (n *Notifier) Alert(ctx context.Context, opp *model.Opportunity) {
	n.log.Info("high-fit opportunity alert",
		zap.Int64("id", opp.ID),
		zap.String("title", opp.Title),
		zap.String("company", opp.Company),
		zap.Int("fitScore", opp.FitScore))

	event, _ := json.Marshal(map[string]any{
		"type":          "EVENT_OPPORTUNITY_ALERT",
		"opportunityId": opp.ID,
		"title":         opp.Title,
		"company":       opp.Company,
		"fitScore":      opp.FitScore,
		"sourceUrl":     opp.SourceURL,
		"summary":       FormatAlert(opp),
	})
	if err := n.rdb.Publish(ctx, ChannelAlert, event).Err(); err != nil {
		n.log.Warn("publish alert failed", zap.Int64("id", opp.ID), zap.Error(err))
	}
}

// Digest publishes a daily digest over the given opportunities. An empty
// slice publishes nothing.
func (n *Notifier) Digest(ctx context.Context, opps []model.Opportunity) {
	if len(opps) == 0 {
		n.log.Info("digest skipped, no candidates")
		return
	}
	n.log.Info("daily digest", zap.Int("count", len(opps)))

	ids := make([]int64, 0, len(opps))
	for _, o := range opps {
		ids = append(ids, o.ID)
	}
	event, _ := json.Marshal(map[string]any{
		"type":           "EVENT_DAILY_DIGEST",
		"opportunityIds": ids,
		"count":          len(opps),
		"body":           FormatDigest(opps),
	})
	if err := n.rdb.Publish(ctx, ChannelDigest, event).Err(); err != nil {
		n.log.Warn("publish digest failed", zap.Error(err))
	}
}

// FormatAlert renders a single-opportunity alert message.
func FormatAlert(opp *model.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 High-fit opportunity (%d/100)\n", opp.FitScore)
	fmt.Fprintf(&b, "%s", opp.Title)
	if opp.Company != "" {
		fmt.Fprintf(&b, " @ %s", opp.Company)
	}
	b.WriteString("\n")
	if opp.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", opp.Location)
	}
	if opp.SalaryText != "" {
		fmt.Fprintf(&b, "Salary: %s\n", opp.SalaryText)
	}
	for _, r := range opp.Reasons {
		fmt.Fprintf(&b, "+ %s\n", r)
	}
	for _, c := range opp.Concerns {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	if opp.SourceURL != "" {
		fmt.Fprintf(&b, "%s\n", opp.SourceURL)
	}
	return b.String()
}

// FormatDigest renders the daily digest body, one line per opportunity,
// highest scores first (the digest query already orders by score).
func FormatDigest(opps []model.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Daily digest: %d opportunities worth a look\n", len(opps))
	for _, o := range opps {
		fmt.Fprintf(&b, "• [%d] %s", o.FitScore, o.Title)
		if o.Company != "" {
			fmt.Fprintf(&b, " @ %s", o.Company)
		}
		if o.Location != "" {
			fmt.Fprintf(&b, " (%s)", o.Location)
		}
		b.WriteString("\n")
	}
	return b.String()
}
