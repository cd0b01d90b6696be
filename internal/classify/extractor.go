// Package classify turns raw message text into structured opportunity
// candidates. The primary path delegates to Gemini; when no API key is
// configured a deterministic keyword heuristic takes over.
package classify

import (
	"context"

	"oppradar/ingest-service/internal/model"
)

// Extractor extracts zero or more opportunity candidates from raw text.
// A digest-style input containing several distinct roles yields one
// Candidate per role. Implementations never let an analysis failure
// propagate: a failed or unparseable analysis is represented as a single
// NOISE candidate carrying a concern.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]model.Candidate, error)
}

// Placeholder values used when extraction cannot determine a field. The
// orchestrator replaces UnknownTitle with the email subject when one exists.
const (
	UnknownTitle   = "Unknown Position"
	UnknownCompany = "Unknown Company"
)

// noiseCandidate builds the degraded single-candidate result used when
// analysis fails or nothing in the text qualifies.
func noiseCandidate(text, concern string) []model.Candidate {
	return []model.Candidate{{
		Type:        model.TypeNoise,
		Title:       UnknownTitle,
		Company:     UnknownCompany,
		Description: text,
		Confidence:  model.ConfidenceLow,
		Concerns:    []string{concern},
	}}
}

// normalize coerces extractor output into the shapes the pipeline relies on:
// a known type, a non-empty title/company, and a confidence value.
func normalize(c model.Candidate, text string) model.Candidate {
	switch c.Type {
	case model.TypeJob, model.TypeBusiness, model.TypeNoise:
	default:
		c.Type = model.TypeNoise
	}
	if c.Title == "" {
		c.Title = UnknownTitle
	}
	if c.Company == "" {
		c.Company = UnknownCompany
	}
	if c.Description == "" {
		c.Description = text
	}
	switch c.Confidence {
	case model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh:
	default:
		c.Confidence = model.ConfidenceMedium
	}
	return c
}
