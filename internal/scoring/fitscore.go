// Package scoring computes the 0–100 fit score for an extracted opportunity
// against the user's preference profile.
//
// Score is a pure function: it depends only on its explicit inputs, so the
// enrichment pass can re-invoke it on richer text and get comparable results.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"oppradar/ingest-service/internal/model"
)

const (
	baseline        = 50
	titleKeywordPts = 10
	descKeywordPts  = 5
	genericLocPts   = 5
	exclusionWeight = -100 // industry weights at or below this hard-exclude

	// Output caps, shared with callers that merge extraction-provided
	// reasons/concerns with the scorer's.
	MaxReasons  = 5
	MaxConcerns = 3
)

// Input carries the candidate fields relevant to scoring.
type Input struct {
	Title       string
	Description string
	Industry    string
	Location    string
	Preferences model.Preferences
}

// Result is the scoring outcome. Reasons and Concerns are ordered by the
// sequence in which the rules fired and truncated to 5 and 3 entries.
type Result struct {
	Score    int
	Reasons  []string
	Concerns []string
}

// Score applies the scoring rules in fixed order: industry weight, keyword
// matches, precise location weights, generic location fallback, then clamps
// to [0, 100].
func Score(in Input) Result {
	score := baseline
	var reasons, concerns []string

	lowerTitle := strings.ToLower(in.Title)
	lowerDesc := strings.ToLower(in.Description)
	lowerLocation := strings.ToLower(in.Location)

	// 1. Industry weight — exact key match, high priority. A weight at or
	// below the exclusion threshold short-circuits the whole calculation.
	if in.Industry != "" && in.Preferences.IndustryWeights != nil {
		if weight, ok := in.Preferences.IndustryWeights[in.Industry]; ok {
			if weight <= exclusionWeight {
				return Result{
					Score:    0,
					Reasons:  []string{},
					Concerns: []string{fmt.Sprintf("Excluded industry: %s", in.Industry)},
				}
			}
			score += weight
			if weight > 0 {
				reasons = append(reasons, fmt.Sprintf("Preferred industry match: %s", in.Industry))
			}
			if weight < 0 {
				concerns = append(concerns, fmt.Sprintf("Undesirable industry: %s", in.Industry))
			}
		}
	}

	// 2. Keyword matching — title beats description; each keyword may
	// contribute once.
	for _, kw := range in.Preferences.Keywords {
		lowerKw := strings.ToLower(kw)
		if lowerKw == "" {
			continue
		}
		if strings.Contains(lowerTitle, lowerKw) {
			score += titleKeywordPts
			reasons = append(reasons, fmt.Sprintf("Title contains preferred keyword: %s", kw))
		} else if strings.Contains(lowerDesc, lowerKw) {
			score += descKeywordPts
			reasons = append(reasons, fmt.Sprintf("Description contains preferred keyword: %s", kw))
		}
	}

	// 3. Precise location weights — first matching entry wins, no stacking.
	// Keys are visited in sorted order so the winner is deterministic.
	if in.Location != "" && in.Preferences.LocationWeights != nil {
		for _, loc := range sortedKeys(in.Preferences.LocationWeights) {
			if !strings.Contains(lowerLocation, strings.ToLower(loc)) {
				continue
			}
			weight := in.Preferences.LocationWeights[loc]
			score += weight
			if weight > 0 {
				reasons = append(reasons, fmt.Sprintf("Strong location match: %s", loc))
			}
			if weight < 0 {
				concerns = append(concerns, fmt.Sprintf("Less desirable location: %s", loc))
			}
			break
		}
	}

	// 4. Generic location fallback — flat bonus when any preferred location
	// appears in the description or location text.
	for _, loc := range in.Preferences.Locations {
		lowerLoc := strings.ToLower(loc)
		if lowerLoc == "" {
			continue
		}
		if strings.Contains(lowerDesc, lowerLoc) || strings.Contains(lowerLocation, lowerLoc) {
			score += genericLocPts
			reasons = append(reasons, "Location mentions match preferences")
			break
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	if len(reasons) > MaxReasons {
		reasons = reasons[:MaxReasons]
	}
	if len(concerns) > MaxConcerns {
		concerns = concerns[:MaxConcerns]
	}

	return Result{Score: score, Reasons: reasons, Concerns: concerns}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
