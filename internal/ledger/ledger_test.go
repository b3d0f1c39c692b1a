package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"applypilot-engine/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insert(t *testing.T, db *DB, ident string) domain.Posting {
	t.Helper()
	p := domain.Posting{
		Identity:     ident,
		Source:       "linkedin",
		Title:        "Backend Engineer",
		Link:         ident,
		DiscoveredAt: time.Now().UTC(),
		Status:       domain.StatusNew,
	}
	added, err := db.InsertNew(context.Background(), p)
	require.NoError(t, err)
	require.True(t, added)
	return p
}

func TestInsertNewIsUniquePerIdentity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	insert(t, db, "https://x/1")

	added, err := db.InsertNew(ctx, domain.Posting{
		Identity: "https://x/1", Source: "alljobs", Title: "other",
		Link: "https://x/1", DiscoveredAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, added, "second insert for the same identity must be a no-op")

	ids, err := db.ReadIdentities(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// the original row is untouched
	p, err := db.FindByIdentity(ctx, "https://x/1")
	require.NoError(t, err)
	assert.Equal(t, "linkedin", p.Source)
}

func TestForwardOnlyStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	insert(t, db, "https://x/1")

	require.NoError(t, db.SetDocs(ctx, "https://x/1", "/a/resume.txt", "/a/cover.txt"))
	require.NoError(t, db.MarkSubmitted(ctx, "https://x/1", time.Now()))

	// no path leads back from SUBMITTED
	assert.Error(t, db.MarkFilteredOut(ctx, "https://x/1"))
	assert.Error(t, db.SetDocs(ctx, "https://x/1", "/b/resume.txt", "/b/cover.txt"))

	p, err := db.FindByIdentity(ctx, "https://x/1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, p.Status)
	assert.Equal(t, "/a/resume.txt", p.ResumeRef)
	require.NotNil(t, p.SubmittedAt)
}

func TestMarkSubmittedIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	insert(t, db, "https://x/1")
	require.NoError(t, db.SetDocs(ctx, "https://x/1", "r", "c"))

	require.NoError(t, db.MarkSubmitted(ctx, "https://x/1", time.Now()))
	// repeat is a no-op, not an error
	require.NoError(t, db.MarkSubmitted(ctx, "https://x/1", time.Now()))
}

func TestSetDocsRequiresBothRefs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	insert(t, db, "https://x/1")

	assert.Error(t, db.SetDocs(ctx, "https://x/1", "r", ""))
	assert.Error(t, db.SetDocs(ctx, "https://x/1", "", "c"))

	p, err := db.FindByIdentity(ctx, "https://x/1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, p.Status)
	assert.Empty(t, p.ResumeRef)
	assert.Empty(t, p.CoverRef)
}

func TestResponseStatusOnlyOnSubmitted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	insert(t, db, "https://x/1")

	err := db.SetResponseStatus(ctx, "https://x/1", domain.ResponsePositive)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	require.NoError(t, db.SetDocs(ctx, "https://x/1", "r", "c"))
	require.NoError(t, db.MarkSubmitted(ctx, "https://x/1", time.Now()))

	require.NoError(t, db.SetResponseStatus(ctx, "https://x/1", domain.ResponsePositive))
	// re-setting the same value is a no-op, which keeps reply
	// reprocessing idempotent
	require.NoError(t, db.SetResponseStatus(ctx, "https://x/1", domain.ResponsePositive))

	p, err := db.FindByIdentity(ctx, "https://x/1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponsePositive, p.ResponseStatus)
	assert.Equal(t, domain.StatusSubmitted, p.Status)
}

func TestSetResponseStatusUnknownIdentity(t *testing.T) {
	db := openTestDB(t)
	err := db.SetResponseStatus(context.Background(), "https://nowhere/1", domain.ResponseNegative)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByStatusOrdersByDiscovery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, ident := range []string{"https://x/1", "https://x/2", "https://x/3"} {
		_, err := db.InsertNew(ctx, domain.Posting{
			Identity: ident, Source: "s", Title: "t", Link: ident,
			DiscoveredAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, db.SetDocs(ctx, "https://x/2", "r", "c"))

	rows, err := db.ListByStatus(ctx, domain.StatusNew, domain.StatusDocsReady)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "https://x/1", rows[0].Identity)
	assert.Equal(t, domain.StatusDocsReady, rows[1].Status)

	rows, err = db.ListByStatus(ctx, domain.StatusDocsReady)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://x/2", rows[0].Identity)
}

func TestSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ids := []string{"https://x/2", "https://x/1"}
	require.NoError(t, db.CreateSession(ctx, "tok-1", ids))

	got, err := db.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ids, got, "session preserves presentation order")

	_, err = db.GetSession(ctx, "tok-unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := db.PruneSessions(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestExportXLSX(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	insert(t, db, "https://x/1")

	b, err := db.ExportXLSX(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, b)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Applications", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Source", v)
	v, err = f.GetCellValue("Applications", "C2")
	require.NoError(t, err)
	assert.Equal(t, "https://x/1", v)
}
