package classify

import (
	"context"
	"regexp"
	"strings"

	"oppradar/ingest-service/internal/model"
)

// Keyword lists for the fallback classifier. Business keywords take priority
// over job keywords over noise keywords; no match at all defaults to NOISE to
// keep false positives low.
var (
	jobKeywords      = []string{"hiring", "vacancy", "apply", "salary", "recruiting", "role"}
	businessKeywords = []string{"tender", "proposal", "procurement", "contract opportunity", "bidding"}
	noiseKeywords    = []string{"newsletter", "promotion", "unrelated", "spam"}
)

var (
	titlePattern   = regexp.MustCompile(`(?i)(?:role|position):\s*(.+)`)
	companyPattern = regexp.MustCompile(`(?i)(?:company|at):\s*(.+)`)
)

// HeuristicExtractor is the deterministic no-credentials fallback: a keyword
// classifier plus labeled-line field extraction. It always yields exactly one
// candidate and never fails.
type HeuristicExtractor struct{}

// NewHeuristic builds a HeuristicExtractor.
func NewHeuristic() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract implements Extractor.
func (h *HeuristicExtractor) Extract(_ context.Context, text string) ([]model.Candidate, error) {
	title := UnknownTitle
	company := UnknownCompany

	if m := titlePattern.FindStringSubmatch(text); len(m) > 1 {
		title = strings.TrimSpace(m[1])
	}
	if m := companyPattern.FindStringSubmatch(text); len(m) > 1 {
		company = strings.TrimSpace(m[1])
	}

	return []model.Candidate{{
		Type:        Classify(text),
		Title:       title,
		Company:     company,
		Description: text,
		Confidence:  model.ConfidenceLow,
		Concerns:    []string{"AI analysis skipped (no API key)"},
	}}, nil
}

// Classify buckets raw text by keyword lists. Precedence: business > job >
// noise; absence of any keyword match defaults to NOISE.
func Classify(text string) model.OpportunityType {
	lower := strings.ToLower(text)

	for _, kw := range businessKeywords {
		if strings.Contains(lower, kw) {
			return model.TypeBusiness
		}
	}
	for _, kw := range jobKeywords {
		if strings.Contains(lower, kw) {
			return model.TypeJob
		}
	}
	for _, kw := range noiseKeywords {
		if strings.Contains(lower, kw) {
			return model.TypeNoise
		}
	}
	return model.TypeNoise
}
