package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdtools/barcode-collapse/bcc/collapse"
)

func openTestStore(t *testing.T) *ResultStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "results.db")
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveCollapseRoundTrip(t *testing.T) {
	s := openTestStore(t)

	res := collapse.Result{
		"AAAA": {"AAAT", "AATA"},
		"TTTT": {},
	}
	runID, err := s.SaveCollapse(RunParams{Mode: "greedy", EditDistance: 1}, res)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, runID)

	got, err := s.Clusters(runID)
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestSaveAdaptivePersistsMetrics(t *testing.T) {
	s := openTestStore(t)

	res := &collapse.AdaptiveResult{
		Clusters: collapse.Result{"AAAA": {"AAAT"}},
		Metrics: []collapse.MappingMetric{
			{
				Barcode:                "AAAA",
				NumMerged:              1,
				EditDistanceUsed:       1,
				EditDistanceDiscovered: 1,
				OriginalObservations:   100,
				TotalObservations:      110,
			},
		},
	}
	runID, err := s.SaveAdaptive(RunParams{Mode: "adaptive", MinEditDistance: 1, MaxEditDistance: 4}, res)
	require.NoError(t, err)

	got, err := s.Clusters(runID)
	require.NoError(t, err)
	assert.Equal(t, res.Clusters, got)

	var numMerged, discovered, total int
	row := s.db.QueryRow(
		"SELECT num_merged, edit_distance_discovered, total_observations FROM mapping_metrics WHERE run_id = ? AND barcode = ?",
		runID.String(), "AAAA",
	)
	require.NoError(t, row.Scan(&numMerged, &discovered, &total))
	assert.Equal(t, 1, numMerged)
	assert.Equal(t, 1, discovered)
	assert.Equal(t, 110, total)
}

func TestSaveBottomUp(t *testing.T) {
	s := openTestStore(t)

	res := collapse.NewBottomUpResult()
	res.AddPair("AAAT", "AAAA")
	res.AddPair("AATT", "AAAT")
	res.AddAmbiguous("CCCG")

	runID, err := s.SaveBottomUp(RunParams{Mode: "bottomup", EditDistance: 1}, res)
	require.NoError(t, err)

	rows, err := s.db.Query("SELECT small, large FROM bottom_up_pairs WHERE run_id = ? ORDER BY small", runID.String())
	require.NoError(t, err)
	defer rows.Close()

	pairs := make(map[string]string)
	for rows.Next() {
		var small, large string
		require.NoError(t, rows.Scan(&small, &large))
		pairs[small] = large
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, map[string]string{"AAAT": "AAAA", "AATT": "AAAT"}, pairs)

	var ambiguous string
	row := s.db.QueryRow("SELECT barcode FROM bottom_up_ambiguous WHERE run_id = ?", runID.String())
	require.NoError(t, row.Scan(&ambiguous))
	assert.Equal(t, "CCCG", ambiguous)
}

func TestRunsAreIsolated(t *testing.T) {
	s := openTestStore(t)

	first, err := s.SaveCollapse(RunParams{Mode: "greedy"}, collapse.Result{"AAAA": {"AAAT"}})
	require.NoError(t, err)
	second, err := s.SaveCollapse(RunParams{Mode: "greedy"}, collapse.Result{"TTTT": {}})
	require.NoError(t, err)

	got, err := s.Clusters(first)
	require.NoError(t, err)
	assert.Equal(t, collapse.Result{"AAAA": {"AAAT"}}, got)

	got, err = s.Clusters(second)
	require.NoError(t, err)
	assert.Equal(t, collapse.Result{"TTTT": {}}, got)
}

func TestOpenEmptyDSNUsesInMemoryDefault(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	runID, err := s.SaveCollapse(RunParams{Mode: "greedy"}, collapse.Result{"AAAA": {"AAAT"}})
	require.NoError(t, err)

	got, err := s.Clusters(runID)
	require.NoError(t, err)
	assert.Equal(t, collapse.Result{"AAAA": {"AAAT"}}, got)
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "results.db")

	s, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// A second open against the same file must not fail on the existing
	// tables.
	s, err = Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
