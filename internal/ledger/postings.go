package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"applypilot-engine/internal/domain"
)

var (
	// ErrNotFound means no row exists for the identity.
	ErrNotFound = errors.New("ledger: posting not found")
	// ErrNotSubmitted guards response updates: a reply can only be
	// reconciled onto a row that has actually been submitted.
	ErrNotSubmitted = errors.New("ledger: posting is not SUBMITTED")
)

// InsertNew writes the anchor row at status NEW. Returns added=false when a
// row for the identity already exists (uniqueness is enforced by the primary
// key, so concurrent re-discovery can never produce a duplicate).
func (d *DB) InsertNew(ctx context.Context, p domain.Posting) (added bool, err error) {
	_, err = d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO postings (identity, source, title, link, discovered_at, status)
VALUES (?, ?, ?, ?, ?, ?);`,
		p.Identity, p.Source, p.Title, p.Link,
		p.DiscoveredAt.UTC().Format(time.RFC3339), string(domain.StatusNew),
	)
	if err != nil {
		return false, fmt.Errorf("insert posting: %w", err)
	}
	var changes int
	if e := d.Pool.QueryRowContext(ctx, `SELECT changes();`).Scan(&changes); e == nil {
		return changes > 0, nil
	}
	return true, nil
}

// ReadIdentities snapshots every known identity for the dedup pass.
func (d *DB) ReadIdentities(ctx context.Context) (map[string]struct{}, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT identity FROM postings;`)
	if err != nil {
		return nil, fmt.Errorf("read identities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// MarkFilteredOut moves a NEW row to its FILTERED_OUT terminal state.
func (d *DB) MarkFilteredOut(ctx context.Context, ident string) error {
	return d.advance(ctx, ident, domain.StatusNew,
		`UPDATE postings SET status = ? WHERE identity = ? AND status = ?;`,
		domain.StatusFilteredOut)
}

// SetDocs persists both artifact refs and status DOCS_READY in a single
// update: resume_ref and cover_ref are set together or not at all.
func (d *DB) SetDocs(ctx context.Context, ident, resumeRef, coverRef string) error {
	if resumeRef == "" || coverRef == "" {
		return errors.New("ledger: resumeRef and coverRef must both be non-empty")
	}
	res, err := d.Pool.ExecContext(ctx, `
UPDATE postings
SET resume_ref = ?, cover_ref = ?, status = ?
WHERE identity = ? AND status = ?;`,
		resumeRef, coverRef, string(domain.StatusDocsReady),
		ident, string(domain.StatusNew),
	)
	if err != nil {
		return fmt.Errorf("set docs: %w", err)
	}
	return d.checkAdvanced(ctx, res, ident, domain.StatusDocsReady)
}

// MarkSubmitted moves a DOCS_READY row to SUBMITTED and records when.
// A row already at SUBMITTED is left untouched (idempotent under re-run).
func (d *DB) MarkSubmitted(ctx context.Context, ident string, at time.Time) error {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE postings
SET status = ?, submitted_at = ?
WHERE identity = ? AND status = ?;`,
		string(domain.StatusSubmitted), at.UTC().Format(time.RFC3339),
		ident, string(domain.StatusDocsReady),
	)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return d.checkAdvanced(ctx, res, ident, domain.StatusSubmitted)
}

// SetResponseStatus updates only response_status, and only on a SUBMITTED
// row. Re-setting the same value is a no-op, which makes reply reprocessing
// idempotent.
func (d *DB) SetResponseStatus(ctx context.Context, ident string, rs domain.ResponseStatus) error {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE postings
SET response_status = ?
WHERE identity = ? AND status = ?;`,
		string(rs), ident, string(domain.StatusSubmitted),
	)
	if err != nil {
		return fmt.Errorf("set response status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	cur, err := d.status(ctx, ident)
	if err != nil {
		return err
	}
	if cur != domain.StatusSubmitted {
		return ErrNotSubmitted
	}
	return nil
}

// FindByIdentity returns the row for an exact identity token, or ErrNotFound.
func (d *DB) FindByIdentity(ctx context.Context, ident string) (*domain.Posting, error) {
	row := d.Pool.QueryRowContext(ctx, selectPosting+`WHERE identity = ? LIMIT 1;`, ident)
	p, err := scanPosting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find posting: %w", err)
	}
	return p, nil
}

// ListByStatus returns rows in the given states, oldest discovery first.
// The pipeline uses it to resume NEW and DOCS_READY rows left behind by a
// crashed or partially failed batch.
func (d *DB) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Posting, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	q := selectPosting + `WHERE status IN (?` // at least one
	args := []any{string(statuses[0])}
	for _, s := range statuses[1:] {
		q += `,?`
		args = append(args, string(s))
	}
	q += `) ORDER BY discovered_at ASC;`

	rows, err := d.Pool.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	defer rows.Close()

	var out []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListAll returns every row, newest discovery first (for the local API and
// the XLSX export).
func (d *DB) ListAll(ctx context.Context) ([]domain.Posting, error) {
	rows, err := d.Pool.QueryContext(ctx, selectPosting+`ORDER BY discovered_at DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

const selectPosting = `
SELECT identity, source, title, link, discovered_at, status,
       resume_ref, cover_ref, response_status, submitted_at
FROM postings
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(r rowScanner) (*domain.Posting, error) {
	var p domain.Posting
	var status, response, discovered, submitted string
	if err := r.Scan(
		&p.Identity, &p.Source, &p.Title, &p.Link, &discovered,
		&status, &p.ResumeRef, &p.CoverRef, &response, &submitted,
	); err != nil {
		return nil, err
	}
	p.Status = domain.Status(status)
	p.ResponseStatus = domain.ResponseStatus(response)
	p.DiscoveredAt, _ = time.Parse(time.RFC3339, discovered)
	if submitted != "" {
		if t, err := time.Parse(time.RFC3339, submitted); err == nil {
			p.SubmittedAt = &t
		}
	}
	return &p, nil
}

func (d *DB) advance(ctx context.Context, ident string, from domain.Status, query string, to domain.Status) error {
	res, err := d.Pool.ExecContext(ctx, query, string(to), ident, string(from))
	if err != nil {
		return fmt.Errorf("advance to %s: %w", to, err)
	}
	return d.checkAdvanced(ctx, res, ident, to)
}

// checkAdvanced distinguishes "already there" (fine, forward-only makes
// repeats no-ops) from "row missing" and "would regress" (refused).
func (d *DB) checkAdvanced(ctx context.Context, res sql.Result, ident string, to domain.Status) error {
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	cur, err := d.status(ctx, ident)
	if err != nil {
		return err
	}
	if cur == to {
		return nil
	}
	return fmt.Errorf("ledger: refusing %s -> %s for %s", cur, to, ident)
}

func (d *DB) status(ctx context.Context, ident string) (domain.Status, error) {
	var s string
	err := d.Pool.QueryRowContext(ctx,
		`SELECT status FROM postings WHERE identity = ? LIMIT 1;`, ident,
	).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.Status(s), nil
}
