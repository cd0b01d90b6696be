// Package store is the persistence layer: opportunity upsert-by-canonical-url,
// append-only feedback inserts, and the key→JSON settings table.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oppradar/ingest-service/internal/model"
)

// ErrNotFound is returned when a row is missing.
var ErrNotFound = fmt.Errorf("not found")

// Store wraps the pgx pool with typed accessors.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a configured Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Exists reports whether an opportunity with the given canonical key is
// already persisted. Used as the cheap dedup probe before any extraction
// cost is paid.
func (s *Store) Exists(ctx context.Context, canonicalURL string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM opportunities WHERE canonical_url = $1)`,
		canonicalURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return exists, nil
}

// UpsertResult reports what the upsert did and the row's workflow status
// after the statement (which, on update, is the user's status, untouched).
type UpsertResult struct {
	ID       int64
	Inserted bool
	Status   string
}

// Upsert inserts opp or, on canonical_url conflict, refreshes every
// extraction- and score-derived field plus updated_at. The workflow status
// column is only written on fresh inserts: updates never clobber a status
// the user (or the auto-dismiss rule) has already set.
func (s *Store) Upsert(ctx context.Context, opp *model.Opportunity) (UpsertResult, error) {
	reasons, err := json.Marshal(orEmpty(opp.Reasons))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("marshal reasons: %w", err)
	}
	concerns, err := json.Marshal(orEmpty(opp.Concerns))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("marshal concerns: %w", err)
	}
	tags, err := json.Marshal(orEmpty(opp.Tags))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("marshal tags: %w", err)
	}

	var res UpsertResult
	err = s.pool.QueryRow(ctx,
		`INSERT INTO opportunities (
		   type, source, origin, received_at, canonical_url, source_url,
		   title, company, industry, location, country, remote_status,
		   salary_text, employment_type, description, requirements, closing_date,
		   fit_score, confidence, reasons, concerns, tags, recommended_action, status
		 ) VALUES (
		   $1, $2, $3, $4, $5, $6,
		   $7, $8, $9, $10, $11, $12,
		   $13, $14, $15, $16, $17,
		   $18, $19, $20::jsonb, $21::jsonb, $22::jsonb, $23, $24
		 )
		 ON CONFLICT (canonical_url) DO UPDATE SET
		   type               = EXCLUDED.type,
		   origin             = EXCLUDED.origin,
		   received_at        = EXCLUDED.received_at,
		   source_url         = EXCLUDED.source_url,
		   title              = EXCLUDED.title,
		   company            = EXCLUDED.company,
		   industry           = EXCLUDED.industry,
		   location           = EXCLUDED.location,
		   country            = EXCLUDED.country,
		   remote_status      = EXCLUDED.remote_status,
		   salary_text        = EXCLUDED.salary_text,
		   employment_type    = EXCLUDED.employment_type,
		   description        = EXCLUDED.description,
		   requirements       = EXCLUDED.requirements,
		   closing_date       = EXCLUDED.closing_date,
		   fit_score          = EXCLUDED.fit_score,
		   confidence         = EXCLUDED.confidence,
		   reasons            = EXCLUDED.reasons,
		   concerns           = EXCLUDED.concerns,
		   tags               = EXCLUDED.tags,
		   recommended_action = EXCLUDED.recommended_action,
		   updated_at         = NOW()
		 RETURNING id, status, (xmax = 0)`,
		opp.Type, opp.Source, opp.Origin, opp.ReceivedAt, opp.CanonicalURL, opp.SourceURL,
		opp.Title, opp.Company, opp.Industry, opp.Location, opp.Country, opp.RemoteStatus,
		opp.SalaryText, opp.EmploymentType, opp.Description, opp.Requirements, opp.ClosingDate,
		opp.FitScore, opp.Confidence, string(reasons), string(concerns), string(tags),
		opp.Recommended, opp.Status,
	).Scan(&res.ID, &res.Status, &res.Inserted)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert opportunity: %w", err)
	}
	return res, nil
}

// List returns all opportunities, newest first.
func (s *Store) List(ctx context.Context) ([]model.Opportunity, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` ORDER BY received_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// DigestCandidates returns NEW opportunities whose score lies in [minScore,
// maxScore). This is the digest job's read model, fully decoupled from the
// ingestion loop.
func (s *Store) DigestCandidates(ctx context.Context, minScore, maxScore int) ([]model.Opportunity, error) {
	rows, err := s.pool.Query(ctx,
		selectColumns+` WHERE status = 'NEW' AND fit_score >= $1 AND fit_score < $2
		 ORDER BY fit_score DESC`,
		minScore, maxScore,
	)
	if err != nil {
		return nil, fmt.Errorf("digest candidates: %w", err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// MarkSent flips the given opportunities to SENT after digest delivery.
func (s *Store) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET status = 'SENT', updated_at = NOW() WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// UpdateStatus sets the workflow status of a single opportunity.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertFeedback appends an immutable feedback event.
func (s *Store) InsertFeedback(ctx context.Context, oppID int64, action, notes string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (opportunity_id, action, notes) VALUES ($1, $2, $3)`,
		oppID, action, notes,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, type, source, COALESCE(origin, ''), received_at, canonical_url,
	       COALESCE(source_url, ''), title, COALESCE(company, ''),
	       COALESCE(industry, ''), COALESCE(location, ''), COALESCE(country, ''),
	       COALESCE(remote_status, ''), COALESCE(salary_text, ''),
	       COALESCE(employment_type, ''), COALESCE(description, ''),
	       COALESCE(requirements, ''), closing_date,
	       fit_score, confidence, reasons, concerns, tags,
	       recommended_action, status, created_at, updated_at
	FROM opportunities`

func scanOpportunities(rows pgx.Rows) ([]model.Opportunity, error) {
	opps := make([]model.Opportunity, 0)
	for rows.Next() {
		var (
			o                      model.Opportunity
			reasons, concerns, tag []byte
		)
		if err := rows.Scan(
			&o.ID, &o.Type, &o.Source, &o.Origin, &o.ReceivedAt, &o.CanonicalURL,
			&o.SourceURL, &o.Title, &o.Company,
			&o.Industry, &o.Location, &o.Country,
			&o.RemoteStatus, &o.SalaryText,
			&o.EmploymentType, &o.Description,
			&o.Requirements, &o.ClosingDate,
			&o.FitScore, &o.Confidence, &reasons, &concerns, &tag,
			&o.Recommended, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		if err := json.Unmarshal(reasons, &o.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons for opportunity %d: %w", o.ID, err)
		}
		if err := json.Unmarshal(concerns, &o.Concerns); err != nil {
			return nil, fmt.Errorf("decode concerns for opportunity %d: %w", o.ID, err)
		}
		if err := json.Unmarshal(tag, &o.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for opportunity %d: %w", o.ID, err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
