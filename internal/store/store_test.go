package store

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"oppradar/ingest-service/internal/model"
)

// ── Fakes ──────────────────────────────────────────────────────────────────

// fakeRows replays canned rows through the pgx.Rows interface. Only the JSON
// columns vary per row; everything else gets a fixed sample value.
type fakeRows struct {
	blobs [][3][]byte // reasons, concerns, tags per row
	idx   int
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return nil }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	return f.idx < len(f.blobs)
}

func (f *fakeRows) Scan(dest ...any) error {
	blobs := f.blobs[f.idx]
	f.idx++
	blobIdx := 0
	for _, d := range dest {
		switch v := d.(type) {
		case *int64:
			*v = 7
		case *int:
			*v = 70
		case *string:
			*v = "sample"
		case *time.Time:
			*v = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
		case **time.Time:
			*v = nil
		case *[]byte:
			*v = blobs[blobIdx]
			blobIdx++
		case *model.OpportunityType:
			*v = model.TypeJob
		case *model.Source:
			*v = model.SourceEmail
		case *model.Confidence:
			*v = model.ConfidenceMedium
		case *model.RecommendedAction:
			*v = model.ActionDigest
		}
	}
	return nil
}

// ── scanOpportunities ──────────────────────────────────────────────────────

func TestScanOpportunities_DecodesJSONColumns(t *testing.T) {
	rows := &fakeRows{blobs: [][3][]byte{
		{[]byte(`["keyword match"]`), []byte(`["short deadline"]`), []byte(`["remote"]`)},
	}}

	opps, err := scanOpportunities(rows)
	if err != nil {
		t.Fatalf("scanOpportunities returned unexpected error: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	o := opps[0]
	if len(o.Reasons) != 1 || o.Reasons[0] != "keyword match" {
		t.Errorf("Reasons = %v", o.Reasons)
	}
	if len(o.Concerns) != 1 || o.Concerns[0] != "short deadline" {
		t.Errorf("Concerns = %v", o.Concerns)
	}
	if len(o.Tags) != 1 || o.Tags[0] != "remote" {
		t.Errorf("Tags = %v", o.Tags)
	}
}

func TestScanOpportunities_CorruptJSONSurfacesError(t *testing.T) {
	rows := &fakeRows{blobs: [][3][]byte{
		{[]byte(`{not json`), []byte(`[]`), []byte(`[]`)},
	}}

	_, err := scanOpportunities(rows)
	if err == nil {
		t.Fatal("expected an error for a corrupt reasons column")
	}
	if !strings.Contains(err.Error(), "decode reasons") {
		t.Errorf("error = %v, want it to name the reasons column", err)
	}
}
