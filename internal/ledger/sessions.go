package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sessions map a short-lived token to the ordered identities a batch summary
// presented. They replace the process-global "last batch" cache the summary
// flow would otherwise need, so a restart or a second operator never loses
// the list the notification referred to.

func (d *DB) CreateSession(ctx context.Context, token string, identities []string) error {
	b, err := json.Marshal(identities)
	if err != nil {
		return err
	}
	_, err = d.Pool.ExecContext(ctx, `
INSERT INTO sessions(token, identities, created_at)
VALUES(?,?,?);`,
		token, string(b), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (d *DB) GetSession(ctx context.Context, token string) ([]string, error) {
	var raw string
	err := d.Pool.QueryRowContext(ctx,
		`SELECT identities FROM sessions WHERE token = ? LIMIT 1;`, token,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return ids, nil
}

// PruneSessions drops tokens older than the cutoff.
func (d *DB) PruneSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := d.Pool.ExecContext(ctx,
		`DELETE FROM sessions WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
