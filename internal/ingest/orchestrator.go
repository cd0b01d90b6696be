// Package ingest wires the whole pipeline together: mailbox paging, dedup
// probes, extraction, scoring, upsert, deep enrichment and alert dispatch.
// One run processes messages strictly sequentially; failures are isolated per
// message and per candidate so one bad item never stops the run.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"oppradar/ingest-service/internal/classify"
	"oppradar/ingest-service/internal/feedback"
	"oppradar/ingest-service/internal/gmail"
	"oppradar/ingest-service/internal/model"
	"oppradar/ingest-service/internal/scoring"
	"oppradar/ingest-service/internal/scraper"
	"oppradar/ingest-service/internal/store"
)

// Score thresholds driving routing decisions.
const (
	alertThreshold  = 80 // score at or above fires an immediate alert
	digestThreshold = 60 // [digestThreshold, alertThreshold) lands in the daily digest
	enrichThreshold = 60 // newly inserted rows above this get deep enrichment
	dismissFloor    = 30 // below this the row is auto-dismissed on insert
)

// minEnrichedLength is the smallest scraped text worth re-analysing.
const minEnrichedLength = 200

// defaultLimit caps a run when the caller does not specify one.
const defaultLimit = 50

// Mailbox pages through labeled messages and fetches their content.
type Mailbox interface {
	ListMessageRefs(ctx context.Context, limit int) ([]gmail.Ref, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

// Repository is the slice of the persistence layer the orchestrator needs.
type Repository interface {
	Exists(ctx context.Context, canonicalURL string) (bool, error)
	Upsert(ctx context.Context, opp *model.Opportunity) (store.UpsertResult, error)
	LoadPreferences(ctx context.Context) (model.Preferences, error)
	DigestCandidates(ctx context.Context, minScore, maxScore int) ([]model.Opportunity, error)
	MarkSent(ctx context.Context, ids []int64) error
}

// Scraper fetches and cleans a linked page for deep enrichment.
type Scraper interface {
	Fetch(ctx context.Context, rawURL string) (*scraper.Content, error)
}

// Notifier delivers immediate alerts and daily digests.
type Notifier interface {
	Alert(ctx context.Context, opp *model.Opportunity)
	Digest(ctx context.Context, opps []model.Opportunity)
}

// Markers record message-level completion so later runs skip extraction.
type Markers interface {
	Done(ctx context.Context, msgID string) (bool, error)
	MarkDone(ctx context.Context, msgID string) error
}

// Options control a single ingestion run.
type Options struct {
	// Force reprocesses messages and candidates even when already persisted.
	Force bool
	// Limit caps the number of messages examined this run.
	Limit int
}

// Summary is the run report.
type Summary struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Orchestrator runs the ingestion pipeline end to end.
type Orchestrator struct {
	mailbox   Mailbox
	extractor classify.Extractor
	repo      Repository
	scraper   Scraper
	notifier  Notifier
	markers   Markers
	log       *zap.Logger
}

// New returns a configured Orchestrator.
func New(mailbox Mailbox, extractor classify.Extractor, repo Repository,
	scr Scraper, notifier Notifier, markers Markers, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		mailbox:   mailbox,
		extractor: extractor,
		repo:      repo,
		scraper:   scr,
		notifier:  notifier,
		markers:   markers,
		log:       log,
	}
}

// canonicalKey is the stable identity of the nth candidate within a message.
func canonicalKey(msgID string, ordinal int) string {
	return fmt.Sprintf("gmail://%s#%d", msgID, ordinal)
}

// mergeCapped keeps the extractor's explanations ahead of the scorer's and
// applies the output cap.
func mergeCapped(extracted, scored []string, max int) []string {
	merged := make([]string, 0, len(extracted)+len(scored))
	merged = append(merged, extracted...)
	merged = append(merged, scored...)
	if len(merged) > max {
		merged = merged[:max]
	}
	return merged
}

// Run executes one ingestion pass. Preferences are loaded once up front and
// held constant for the whole run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}

	prefs, err := o.repo.LoadPreferences(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load preferences: %w", err)
	}

	refs, err := o.mailbox.ListMessageRefs(ctx, opts.Limit)
	if err != nil {
		return Summary{}, fmt.Errorf("list mailbox: %w", err)
	}
	o.log.Info("ingestion run started",
		zap.Int("messages", len(refs)), zap.Bool("force", opts.Force))

	var sum Summary
	for _, ref := range refs {
		if err := o.processMessage(ctx, ref.ID, opts, prefs, &sum); err != nil {
			sum.Failed++
			o.log.Warn("message failed", zap.String("messageId", ref.ID), zap.Error(err))
		}
	}
	o.log.Info("ingestion run finished",
		zap.Int("processed", sum.Processed), zap.Int("inserted", sum.Inserted),
		zap.Int("updated", sum.Updated), zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

// processMessage runs the pipeline for one message. On non-forced runs it
// probes the completion marker before paying any extraction cost; candidates
// already persisted are deduplicated individually inside processCandidate, so
// an expired marker costs one re-extraction, never duplicate rows.
func (o *Orchestrator) processMessage(ctx context.Context, msgID string,
	opts Options, prefs model.Preferences, sum *Summary) error {

	if !opts.Force {
		done, err := o.markers.Done(ctx, msgID)
		if err != nil {
			o.log.Warn("marker probe failed", zap.String("messageId", msgID), zap.Error(err))
		}
		if done {
			sum.Skipped++
			return nil
		}
	}

	msg, err := o.mailbox.GetMessage(ctx, msgID)
	if err != nil {
		return fmt.Errorf("fetch message: %w", err)
	}

	candidates, err := o.extractor.Extract(ctx, msg.Body)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	sum.Processed++

	failed := false
	for i, cand := range candidates {
		if err := o.processCandidate(ctx, msg, i, cand, opts, prefs, sum); err != nil {
			failed = true
			sum.Failed++
			o.log.Warn("candidate failed",
				zap.String("messageId", msgID), zap.Int("ordinal", i), zap.Error(err))
		}
	}

	// Only a fully clean pass marks the message complete; leaving the marker
	// unset keeps failed ordinals retryable on the next run.
	if failed {
		return nil
	}
	if err := o.markers.MarkDone(ctx, msgID); err != nil {
		o.log.Warn("mark done failed", zap.String("messageId", msgID), zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) processCandidate(ctx context.Context, msg *gmail.Message,
	ordinal int, cand model.Candidate, opts Options, prefs model.Preferences, sum *Summary) error {

	if cand.Type == model.TypeNoise {
		sum.Skipped++
		return nil
	}

	key := canonicalKey(msg.ID, ordinal)
	if !opts.Force {
		exists, err := o.repo.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("dedup probe: %w", err)
		}
		if exists {
			sum.Skipped++
			return nil
		}
	}

	title := cand.Title
	if title == classify.UnknownTitle && msg.Subject != "" {
		title = msg.Subject
	}

	fit := scoring.Score(scoring.Input{
		Title:       title,
		Description: cand.Description,
		Industry:    cand.Industry,
		Location:    cand.Location,
		Preferences: prefs,
	})

	opp := &model.Opportunity{
		Type:           cand.Type,
		Source:         model.SourceEmail,
		Origin:         msg.From,
		ReceivedAt:     msg.ReceivedAt,
		CanonicalURL:   key,
		SourceURL:      cand.SourceURL,
		Title:          title,
		Company:        cand.Company,
		Industry:       cand.Industry,
		Location:       cand.Location,
		Country:        cand.Country,
		RemoteStatus:   cand.RemoteStatus,
		SalaryText:     cand.SalaryText,
		EmploymentType: cand.EmploymentType,
		Description:    cand.Description,
		Requirements:   cand.Requirements,
		FitScore:       fit.Score,
		Confidence:     cand.Confidence,
		Reasons:        mergeCapped(cand.Reasons, fit.Reasons, scoring.MaxReasons),
		Concerns:       mergeCapped(cand.Concerns, fit.Concerns, scoring.MaxConcerns),
		Tags:           cand.Tags,
		Recommended:    recommendedAction(fit.Score),
		Status:         statusForScore(fit.Score),
	}

	res, err := o.repo.Upsert(ctx, opp)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	opp.ID = res.ID
	opp.Status = res.Status
	if res.Inserted {
		sum.Inserted++
	} else {
		sum.Updated++
	}

	if res.Inserted && fit.Score > enrichThreshold && opp.SourceURL != "" {
		o.enrich(ctx, opp, prefs)
	}

	if opp.FitScore >= alertThreshold && opp.Status != feedback.StatusDismissed {
		o.notifier.Alert(ctx, opp)
	}
	return nil
}

// enrich fetches the source page, re-extracts from the richer text and
// rescores the same row. Any failure here degrades to keeping the snippet
// version: enrichment never fails the ingestion of the opportunity.
func (o *Orchestrator) enrich(ctx context.Context, opp *model.Opportunity, prefs model.Preferences) {
	content, err := o.scraper.Fetch(ctx, opp.SourceURL)
	if err != nil {
		o.log.Warn("enrichment fetch failed",
			zap.String("url", opp.SourceURL), zap.Error(err))
		return
	}
	if len(content.Description) < minEnrichedLength || len(content.Description) <= len(opp.Description) {
		o.log.Debug("enrichment skipped, page adds nothing",
			zap.String("url", opp.SourceURL), zap.Int("pageLen", len(content.Description)))
		return
	}

	candidates, err := o.extractor.Extract(ctx, content.Description)
	if err != nil {
		o.log.Warn("enrichment extract failed", zap.String("url", opp.SourceURL), zap.Error(err))
		return
	}
	var enriched *model.Candidate
	for i := range candidates {
		if candidates[i].Type != model.TypeNoise {
			enriched = &candidates[i]
			break
		}
	}
	if enriched == nil {
		return
	}

	opp.Description = enriched.Description
	if enriched.Requirements != "" {
		opp.Requirements = enriched.Requirements
	}
	if enriched.SalaryText != "" {
		opp.SalaryText = enriched.SalaryText
	}
	if enriched.Location != "" {
		opp.Location = enriched.Location
	}
	fit := scoring.Score(scoring.Input{
		Title:       opp.Title,
		Description: opp.Description,
		Industry:    opp.Industry,
		Location:    opp.Location,
		Preferences: prefs,
	})
	opp.FitScore = fit.Score
	opp.Reasons = mergeCapped(enriched.Reasons, fit.Reasons, scoring.MaxReasons)
	opp.Concerns = mergeCapped(enriched.Concerns, fit.Concerns, scoring.MaxConcerns)
	opp.Confidence = enriched.Confidence
	opp.Recommended = recommendedAction(fit.Score)

	if _, err := o.repo.Upsert(ctx, opp); err != nil {
		o.log.Warn("enrichment upsert failed", zap.String("url", opp.SourceURL), zap.Error(err))
		return
	}
	o.log.Info("opportunity enriched",
		zap.Int64("id", opp.ID), zap.Int("fitScore", opp.FitScore))
}

// RunDigest selects NEW opportunities in the digest score band, hands them to
// the notifier, and marks them SENT. It operates purely over persisted state.
func (o *Orchestrator) RunDigest(ctx context.Context) (int, error) {
	opps, err := o.repo.DigestCandidates(ctx, digestThreshold, alertThreshold)
	if err != nil {
		return 0, fmt.Errorf("digest query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}
	o.notifier.Digest(ctx, opps)

	ids := make([]int64, 0, len(opps))
	for _, opp := range opps {
		ids = append(ids, opp.ID)
	}
	if err := o.repo.MarkSent(ctx, ids); err != nil {
		return len(opps), fmt.Errorf("mark sent: %w", err)
	}
	return len(opps), nil
}

func recommendedAction(score int) model.RecommendedAction {
	switch {
	case score >= alertThreshold:
		return model.ActionAlert
	case score >= digestThreshold:
		return model.ActionDigest
	default:
		return model.ActionStore
	}
}

// statusForScore applies the auto-dismiss floor at insert time.
func statusForScore(score int) string {
	if score < dismissFloor {
		return feedback.StatusDismissed
	}
	return feedback.StatusNew
}
