package classify_test

import (
	"context"
	"testing"

	"oppradar/ingest-service/internal/classify"
	"oppradar/ingest-service/internal/model"
)

// ── Classify ──────────────────────────────────────────────────────────────

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		want model.OpportunityType
	}{
		{"job keyword", "We are hiring a backend developer", model.TypeJob},
		{"job keyword salary", "Competitive salary offered", model.TypeJob},
		{"business keyword", "Invitation to tender for IT services", model.TypeBusiness},
		{"business beats job", "Open tender — apply before Friday", model.TypeBusiness},
		{"noise keyword", "Your weekly newsletter has arrived", model.TypeNoise},
		{"no keywords defaults to noise", "Lunch on Tuesday?", model.TypeNoise},
		{"case insensitive", "HIRING NOW", model.TypeJob},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := classify.Classify(c.text); got != c.want {
				t.Errorf("Classify(%q) = %s, want %s", c.text, got, c.want)
			}
		})
	}
}

// ── HeuristicExtractor ────────────────────────────────────────────────────

func TestHeuristic_LabeledLines(t *testing.T) {
	body := "Role: Platform Engineer\nCompany: Acme Corp\nWe are hiring across Europe."
	cands, err := classify.NewHeuristic().Extract(context.Background(), body)
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1", len(cands))
	}
	c := cands[0]
	if c.Type != model.TypeJob {
		t.Errorf("Type = %s, want JOB", c.Type)
	}
	if c.Title != "Platform Engineer" {
		t.Errorf("Title = %q, want \"Platform Engineer\"", c.Title)
	}
	if c.Company != "Acme Corp" {
		t.Errorf("Company = %q, want \"Acme Corp\"", c.Company)
	}
}

func TestHeuristic_PositionAndAtLabels(t *testing.T) {
	body := "Position: Data Analyst\nAt: Globex\nNew vacancy posted."
	cands, _ := classify.NewHeuristic().Extract(context.Background(), body)
	if cands[0].Title != "Data Analyst" {
		t.Errorf("Title = %q, want \"Data Analyst\"", cands[0].Title)
	}
	if cands[0].Company != "Globex" {
		t.Errorf("Company = %q, want \"Globex\"", cands[0].Company)
	}
}

func TestHeuristic_DefaultsWhenUnlabeled(t *testing.T) {
	cands, _ := classify.NewHeuristic().Extract(context.Background(), "We are hiring!")
	c := cands[0]
	if c.Title != "Unknown Position" {
		t.Errorf("Title = %q, want \"Unknown Position\"", c.Title)
	}
	if c.Company != "Unknown Company" {
		t.Errorf("Company = %q, want \"Unknown Company\"", c.Company)
	}
	if len(c.Concerns) == 0 {
		t.Error("expected a concern noting the skipped AI analysis")
	}
}

func TestHeuristic_NoiseKeepsFullBodyAsDescription(t *testing.T) {
	body := "Monthly newsletter: product updates"
	cands, _ := classify.NewHeuristic().Extract(context.Background(), body)
	if cands[0].Type != model.TypeNoise {
		t.Errorf("Type = %s, want NOISE", cands[0].Type)
	}
	if cands[0].Description != body {
		t.Errorf("Description = %q, want full body", cands[0].Description)
	}
}
