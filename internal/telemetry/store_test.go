package telemetry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()

	store, err := OpenSQLiteMetricsStore(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestSQLiteMetricsStore_SaveQueryKindCounts(t *testing.T) {
	store := setupTestStore(t)

	counts := map[QueryKind]int64{
		QueryKindTerm:     10,
		QueryKindWildcard: 5,
		QueryKindMatchAll: 3,
	}

	err := store.SaveQueryKindCounts("2026-08-25", counts)
	require.NoError(t, err)

	result, err := store.GetQueryKindCounts("2026-08-25", "2026-08-25")
	require.NoError(t, err)

	assert.Equal(t, int64(10), result[QueryKindTerm])
	assert.Equal(t, int64(5), result[QueryKindWildcard])
	assert.Equal(t, int64(3), result[QueryKindMatchAll])
}

func TestSQLiteMetricsStore_SaveQueryKindCounts_Incremental(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveQueryKindCounts("2026-08-25", map[QueryKind]int64{
		QueryKindTerm: 10,
	})
	require.NoError(t, err)

	// Second save should increment
	err = store.SaveQueryKindCounts("2026-08-25", map[QueryKind]int64{
		QueryKindTerm: 5,
	})
	require.NoError(t, err)

	result, err := store.GetQueryKindCounts("2026-08-25", "2026-08-25")
	require.NoError(t, err)

	assert.Equal(t, int64(15), result[QueryKindTerm])
}

func TestSQLiteMetricsStore_UpsertTermCounts(t *testing.T) {
	store := setupTestStore(t)

	terms := map[string]int64{
		"error":   10,
		"handler": 5,
		"search":  3,
	}

	err := store.UpsertTermCounts(terms)
	require.NoError(t, err)

	result, err := store.GetTopTerms(10)
	require.NoError(t, err)

	assert.Len(t, result, 3)
	assert.Equal(t, "error", result[0].Term)
	assert.Equal(t, int64(10), result[0].Count)
}

func TestSQLiteMetricsStore_UpsertTermCounts_Incremental(t *testing.T) {
	store := setupTestStore(t)

	err := store.UpsertTermCounts(map[string]int64{"error": 10})
	require.NoError(t, err)

	err = store.UpsertTermCounts(map[string]int64{"error": 5})
	require.NoError(t, err)

	result, err := store.GetTopTerms(1)
	require.NoError(t, err)

	assert.Equal(t, int64(15), result[0].Count)
}

func TestSQLiteMetricsStore_GetTopTerms_Limit(t *testing.T) {
	store := setupTestStore(t)

	terms := map[string]int64{
		"a": 1, "b": 2, "c": 3, "d": 4, "e": 5,
	}
	err := store.UpsertTermCounts(terms)
	require.NoError(t, err)

	result, err := store.GetTopTerms(3)
	require.NoError(t, err)

	assert.Len(t, result, 3)
	// Sorted by count descending
	assert.Equal(t, "e", result[0].Term)
	assert.Equal(t, "d", result[1].Term)
	assert.Equal(t, "c", result[2].Term)
}

func TestSQLiteMetricsStore_ZeroHitQueries(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now()

	err := store.AddZeroHitQuery("missingword", now)
	require.NoError(t, err)

	err = store.AddZeroHitQuery("ghost*", now.Add(time.Minute))
	require.NoError(t, err)

	result, err := store.GetZeroHitQueries(10)
	require.NoError(t, err)

	assert.Len(t, result, 2)
	// Most recent first
	assert.Equal(t, "ghost*", result[0])
	assert.Equal(t, "missingword", result[1])
}

func TestSQLiteMetricsStore_ZeroHitQueries_Bounded(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now()

	// 105 inserts trim down to 100
	for i := 0; i < 105; i++ {
		err := store.AddZeroHitQuery(fmt.Sprintf("query%d", i), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	result, err := store.GetZeroHitQueries(200)
	require.NoError(t, err)

	assert.Len(t, result, 100)
	assert.Equal(t, "query104", result[0])
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	store := setupTestStore(t)

	counts := map[LatencyBucket]int64{
		BucketP10:   100,
		BucketP50:   50,
		BucketP100:  25,
		BucketP500:  10,
		BucketP1000: 5,
	}

	err := store.SaveLatencyCounts("2026-08-25", counts)
	require.NoError(t, err)

	result, err := store.GetLatencyCounts("2026-08-25", "2026-08-25")
	require.NoError(t, err)

	assert.Equal(t, int64(100), result[BucketP10])
	assert.Equal(t, int64(50), result[BucketP50])
	assert.Equal(t, int64(25), result[BucketP100])
	assert.Equal(t, int64(10), result[BucketP500])
	assert.Equal(t, int64(5), result[BucketP1000])
}

func TestSQLiteMetricsStore_LatencyCounts_Incremental(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveLatencyCounts("2026-08-25", map[LatencyBucket]int64{BucketP10: 10})
	require.NoError(t, err)

	err = store.SaveLatencyCounts("2026-08-25", map[LatencyBucket]int64{BucketP10: 5})
	require.NoError(t, err)

	result, err := store.GetLatencyCounts("2026-08-25", "2026-08-25")
	require.NoError(t, err)

	assert.Equal(t, int64(15), result[BucketP10])
}

func TestSQLiteMetricsStore_DateRange(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveQueryKindCounts("2026-08-23", map[QueryKind]int64{QueryKindTerm: 10})
	require.NoError(t, err)

	err = store.SaveQueryKindCounts("2026-08-24", map[QueryKind]int64{QueryKindTerm: 20})
	require.NoError(t, err)

	err = store.SaveQueryKindCounts("2026-08-25", map[QueryKind]int64{QueryKindTerm: 30})
	require.NoError(t, err)

	result, err := store.GetQueryKindCounts("2026-08-23", "2026-08-24")
	require.NoError(t, err)

	assert.Equal(t, int64(30), result[QueryKindTerm]) // 10 + 20
}

func TestSQLiteMetricsStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")

	store, err := OpenSQLiteMetricsStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"durable": 7}))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteMetricsStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	result, err := reopened.GetTopTerms(1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "durable", result[0].Term)
	assert.Equal(t, int64(7), result[0].Count)
}

func TestNewSQLiteMetricsStore_NilDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	assert.Error(t, err)
}

func TestSQLiteMetricsStore_EmptyTerms(t *testing.T) {
	store := setupTestStore(t)

	// Empty map should be no-op
	err := store.UpsertTermCounts(map[string]int64{})
	require.NoError(t, err)
}
