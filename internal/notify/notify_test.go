package notify_test

import (
	"strings"
	"testing"

	"oppradar/ingest-service/internal/model"
	"oppradar/ingest-service/internal/notify"
)

// ── FormatAlert ────────────────────────────────────────────────────────────

func TestFormatAlert_IncludesScoreTitleCompany(t *testing.T) {
	msg := notify.FormatAlert(&model.Opportunity{
		Title:    "Senior Go Engineer",
		Company:  "Acme",
		FitScore: 85,
		Reasons:  []string{"Title matches keyword: AI"},
		Concerns: []string{"No salary listed"},
	})
	for _, want := range []string{"85/100", "Senior Go Engineer", "@ Acme", "+ Title matches keyword: AI", "- No salary listed"} {
		if !strings.Contains(msg, want) {
			t.Errorf("FormatAlert missing %q in:\n%s", want, msg)
		}
	}
}

func TestFormatAlert_OmitsEmptyFields(t *testing.T) {
	msg := notify.FormatAlert(&model.Opportunity{Title: "Founder Wanted", FitScore: 90})
	for _, absent := range []string{"@ ", "Location:", "Salary:"} {
		if strings.Contains(msg, absent) {
			t.Errorf("FormatAlert should omit %q for empty fields:\n%s", absent, msg)
		}
	}
}

// ── FormatDigest ───────────────────────────────────────────────────────────

func TestFormatDigest_OneLinePerOpportunity(t *testing.T) {
	body := notify.FormatDigest([]model.Opportunity{
		{Title: "Platform Engineer", Company: "Beta", Location: "London", FitScore: 72},
		{Title: "Data Engineer", FitScore: 64},
	})
	if !strings.Contains(body, "2 opportunities") {
		t.Errorf("digest header missing count:\n%s", body)
	}
	if !strings.Contains(body, "• [72] Platform Engineer @ Beta (London)") {
		t.Errorf("digest missing first entry:\n%s", body)
	}
	if !strings.Contains(body, "• [64] Data Engineer") {
		t.Errorf("digest missing second entry:\n%s", body)
	}
}
