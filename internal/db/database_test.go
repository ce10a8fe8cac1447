package db

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, 50},
		{0, 50},
		{1, 1},
		{120, 120},
		{MaxHistory, MaxHistory},
		{MaxHistory + 1, MaxHistory},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ClampLimit(tt.in), "limit %d", tt.in)
	}
}

func TestInterval(t *testing.T) {
	require.Equal(t, "604800 seconds", interval(168*time.Hour))
	require.Equal(t, "90 seconds", interval(90*time.Second+400*time.Millisecond))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	sql, err := migrations.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	require.Contains(t, string(sql), "pg_notify('"+NotifyChannel+"'")

	notify := string(sql)[strings.Index(string(sql), "json_build_object("):]
	notify = notify[:strings.Index(notify, ")::text")]
	require.NotContains(t, notify, "client_ip")
	require.Contains(t, notify, "'country', NEW.country")
}

func TestVerdict_JSONOmitsClientIP(t *testing.T) {
	data, err := json.Marshal(Verdict{Verdict: "Benign", ClientIP: "203.0.113.7", Country: "NL"})
	require.NoError(t, err)
	require.NotContains(t, string(data), "client_ip")
	require.NotContains(t, string(data), "203.0.113.7")
	require.Contains(t, string(data), `"country":"NL"`)
}

// testDB connects to FLOWSCAN_TEST_DATABASE_URL or skips.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("FLOWSCAN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FLOWSCAN_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Connect(ctx, dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	_, err = db.Pool.Exec(ctx, `TRUNCATE verdicts`)
	require.NoError(t, err)
	return db
}

func TestDB_VerdictRoundTrip(t *testing.T) {
	req := require.New(t)
	db := testDB(t)
	ctx := context.Background()

	old := &Verdict{
		CreatedAt:   time.Now().UTC().Add(-48 * time.Hour),
		Mode:        "binary",
		Verdict:     "Benign",
		Category:    "benign",
		Confidence:  "94.81%",
		Probability: 0.9481,
	}
	fresh := &Verdict{
		Mode:        "multi",
		Verdict:     "DoS-Hulk",
		Category:    "attack",
		Confidence:  "58.74%",
		Probability: 0.5874,
		Reason:      "Flagged as DoS-Hulk due to high contribution from features like: a, b, c, d, e.",
		ClientIP:    "192.0.2.1",
		Source:      "api",
	}
	req.NoError(db.InsertVerdict(ctx, old))
	req.NoError(db.InsertVerdict(ctx, fresh))
	req.NotEqual(uuid.Nil, fresh.ID)

	recent, err := db.RecentVerdicts(ctx, 10)
	req.NoError(err)
	req.Len(recent, 2)
	req.Equal(fresh.ID, recent[0].ID)
	req.Equal(fresh.Reason, recent[0].Reason)
	req.Equal("192.0.2.1", recent[0].ClientIP)

	counts, err := db.VerdictBreakdown(ctx, 24*time.Hour)
	req.NoError(err)
	req.Equal([]VerdictCount{{Mode: "multi", Verdict: "DoS-Hulk", Category: "attack", Count: 1}}, counts)

	n, err := db.PruneVerdicts(ctx, 24*time.Hour)
	req.NoError(err)
	req.Equal(int64(1), n)

	recent, err = db.RecentVerdicts(ctx, 10)
	req.NoError(err)
	req.Len(recent, 1)
}
