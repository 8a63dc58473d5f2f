package collapse

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates an adaptive run's per-barcode metrics. Discovered
// thresholds equal to NoThreshold are excluded from the threshold statistics.
type Summary struct {
	Cores              int
	CoresWithThreshold int
	TotalMerged        int
	TotalObservations  int
	MeanDiscovered     float64
	MedianDiscovered   float64
	MeanClusterSize    float64
	P90ClusterSize     float64
}

// Summarize computes aggregate statistics over adaptive mapping metrics.
func Summarize(metrics []MappingMetric) Summary {
	s := Summary{Cores: len(metrics)}
	if len(metrics) == 0 {
		return s
	}

	var discovered []float64
	clusterSizes := make([]float64, 0, len(metrics))
	for _, m := range metrics {
		if m.EditDistanceDiscovered != NoThreshold {
			discovered = append(discovered, float64(m.EditDistanceDiscovered))
		}
		// Cluster size includes the core barcode itself.
		clusterSizes = append(clusterSizes, float64(m.NumMerged+1))
		s.TotalMerged += m.NumMerged
		s.TotalObservations += m.TotalObservations
	}
	s.CoresWithThreshold = len(discovered)

	if len(discovered) > 0 {
		sort.Float64s(discovered)
		s.MeanDiscovered = stat.Mean(discovered, nil)
		s.MedianDiscovered = stat.Quantile(0.5, stat.Empirical, discovered, nil)
	}
	sort.Float64s(clusterSizes)
	s.MeanClusterSize = stat.Mean(clusterSizes, nil)
	s.P90ClusterSize = stat.Quantile(0.9, stat.Empirical, clusterSizes, nil)
	return s
}
