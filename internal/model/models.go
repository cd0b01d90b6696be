// Package model defines shared data structures for the ingest service.
package model

import "time"

// OpportunityType classifies what kind of opportunity a message contains.
type OpportunityType string

const (
	TypeJob      OpportunityType = "JOB"
	TypeBusiness OpportunityType = "BUSINESS"
	TypeNoise    OpportunityType = "NOISE"
)

// Source identifies where an opportunity was ingested from.
type Source string

const (
	SourceEmail Source = "EMAIL"
	SourceRSS   Source = "RSS"
	SourceWeb   Source = "WEB"
)

// Confidence is the extractor's self-reported certainty.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// RecommendedAction is the routing decision derived from the fit score.
type RecommendedAction string

const (
	ActionAlert  RecommendedAction = "ALERT"
	ActionDigest RecommendedAction = "DIGEST"
	ActionStore  RecommendedAction = "STORE"
)

// Candidate is a structured opportunity extracted from raw text, not yet
// persisted. A single digest-style email may yield several candidates.
type Candidate struct {
	Type           OpportunityType `json:"type"`
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	Industry       string          `json:"industry,omitempty"`
	Location       string          `json:"location,omitempty"`
	Country        string          `json:"country,omitempty"`
	RemoteStatus   string          `json:"remoteStatus,omitempty"`
	SalaryText     string          `json:"salaryText,omitempty"`
	EmploymentType string          `json:"employmentType,omitempty"`
	Description    string          `json:"description"`
	Requirements   string          `json:"requirements,omitempty"`
	SourceURL      string          `json:"sourceUrl,omitempty"`
	Confidence     Confidence      `json:"confidence,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Reasons        []string        `json:"reasons,omitempty"`
	Concerns       []string        `json:"concerns,omitempty"`
}

// Opportunity mirrors a row in the opportunities table. CanonicalURL is the
// stable identity key: re-ingesting the same key updates the existing row.
type Opportunity struct {
	ID             int64             `json:"id"`
	Type           OpportunityType   `json:"type"`
	Source         Source            `json:"source"`
	Origin         string            `json:"origin,omitempty"` // sender or domain
	ReceivedAt     time.Time         `json:"receivedAt"`
	CanonicalURL   string            `json:"canonicalUrl"`
	SourceURL      string            `json:"sourceUrl,omitempty"`
	Title          string            `json:"title"`
	Company        string            `json:"company,omitempty"`
	Industry       string            `json:"industry,omitempty"`
	Location       string            `json:"location,omitempty"`
	Country        string            `json:"country,omitempty"`
	RemoteStatus   string            `json:"remoteStatus,omitempty"`
	SalaryText     string            `json:"salaryText,omitempty"`
	EmploymentType string            `json:"employmentType,omitempty"`
	Description    string            `json:"description,omitempty"`
	Requirements   string            `json:"requirements,omitempty"`
	ClosingDate    *time.Time        `json:"closingDate,omitempty"`
	FitScore       int               `json:"fitScore"`
	Confidence     Confidence        `json:"confidence"`
	Reasons        []string          `json:"reasons"`
	Concerns       []string          `json:"concerns"`
	Tags           []string          `json:"tags,omitempty"`
	Recommended    RecommendedAction `json:"recommendedAction"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// FeedbackEvent is an immutable append-only record of a user reaction.
type FeedbackEvent struct {
	ID            int64     `json:"id"`
	OpportunityID int64     `json:"opportunityId"`
	Action        string    `json:"action"`
	Notes         string    `json:"notes,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Preferences is the user's preference profile, read once per ingestion run
// and treated as immutable for that run's duration.
type Preferences struct {
	Keywords        []string       `json:"keywords"`
	Locations       []string       `json:"locations"`
	LocationWeights map[string]int `json:"locationWeights,omitempty"`
	IndustryWeights map[string]int `json:"industryWeights,omitempty"`
	MinSalary       *int           `json:"minSalary,omitempty"`
}

// DefaultPreferences is used when no preference profile has been saved yet.
func DefaultPreferences() Preferences {
	return Preferences{
		Keywords:  []string{"Software Engineer", "AI", "Fullstack"},
		Locations: []string{"Remote", "London"},
	}
}
