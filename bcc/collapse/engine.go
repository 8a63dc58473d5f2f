package collapse

import (
	"fmt"
	"time"

	"github.com/bcdtools/barcode-collapse/bcc/freq"
)

// Collapse performs fixed-threshold greedy collapse. Core barcodes are
// drained highest-count first; each claims every pool barcode within
// editDistance, and claimed barcodes leave both the pool and the remaining
// core queue, so higher-count cores get first claim on contested neighbors
// and no barcode is ever assigned twice. The caller's inputs are never
// mutated.
func (c *Collapser) Collapse(coreBarcodes []string, table *freq.Table, findIndels bool, editDistance int) (Result, error) {
	queue := dedupe(coreBarcodes)
	table = table.Clone()

	poolKeys := table.KeysOrderedByCount(true)
	ix := newBarcodeIndex(poolKeys, queue)
	poolBM := ix.bitmapOf(poolKeys)

	result := make(Result)
	coreCount := len(queue)
	count := 0
	collapsedWindow := 0
	start := time.Now()

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		count++
		if id, ok := ix.id(b); ok {
			poolBM.Remove(id)
		}

		closeSet, err := c.Neighbors(b, ix.strings(poolBM), findIndels, editDistance)
		if err != nil {
			return nil, fmt.Errorf("collapsing %q: %w", b, err)
		}
		collapsedWindow += len(closeSet)

		if _, dup := result[b]; dup {
			return nil, fmt.Errorf("%w: core barcode %q already present in result", ErrInvariant, b)
		}
		result[b] = sortedSet(closeSet)

		c.assertPoolConsistency(ix, closeSet)
		poolBM.AndNot(ix.bitmapOfSet(closeSet))
		queue = filterOut(queue, closeSet)

		collapsedWindow = c.reportProgress(count, collapsedWindow, table.Size(), poolBM.GetCardinality())
	}

	c.logSummary(start, coreCount, count)
	return result, nil
}

// CollapseAll collapses with every table key eligible as a core barcode,
// ordered by descending count.
func (c *Collapser) CollapseAll(table *freq.Table, findIndels bool, editDistance int) (Result, error) {
	return c.Collapse(table.KeysOrderedByCount(true), table, findIndels, editDistance)
}

// CollapseAdaptive performs per-barcode adaptive-threshold collapse. The
// threshold for each core barcode is discovered against a universe built once
// from coreBarcodes and the table keys; the universe never shrinks. Actual
// assignment runs against the same shrinking pool the greedy engine uses.
// That asymmetry is intentional: the threshold reflects the full empirical
// distance distribution, while assignment must respect earlier claims.
func (c *Collapser) CollapseAdaptive(coreBarcodes []string, table *freq.Table, findIndels bool, defaultEditDistance, minEditDistance, maxEditDistance int) (*AdaptiveResult, error) {
	queue := dedupe(coreBarcodes)
	table = table.Clone()

	poolKeys := table.KeysOrderedByCount(true)
	ix := newBarcodeIndex(poolKeys, queue)
	poolBM := ix.bitmapOf(poolKeys)
	universe := dedupe(append(append([]string{}, queue...), table.Keys()...))

	result := make(Result)
	metrics := make([]MappingMetric, 0, len(queue))
	coreCount := len(queue)
	count := 0
	collapsedWindow := 0
	start := time.Now()

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		count++
		if id, ok := ix.id(b); ok {
			poolBM.Remove(id)
		}

		discovered, err := c.DiscoverThreshold(b, universe, findIndels, minEditDistance, maxEditDistance)
		if err != nil {
			return nil, fmt.Errorf("discovering threshold for %q: %w", b, err)
		}
		editDistance := discovered
		if editDistance > maxEditDistance || discovered == NoThreshold {
			editDistance = defaultEditDistance
		}

		closeSet, err := c.Neighbors(b, ix.strings(poolBM), findIndels, editDistance)
		if err != nil {
			return nil, fmt.Errorf("collapsing %q: %w", b, err)
		}
		collapsedWindow += len(closeSet)

		// Every core barcode is reported, collapsed or not.
		metrics = append(metrics, MappingMetric{
			Barcode:                b,
			NumMerged:              len(closeSet),
			EditDistanceUsed:       editDistance,
			EditDistanceDiscovered: discovered,
			OriginalObservations:   table.CountOf(b),
			TotalObservations:      mergedObservations(b, closeSet, table),
		})

		if _, dup := result[b]; dup {
			return nil, fmt.Errorf("%w: core barcode %q already present in result", ErrInvariant, b)
		}
		result[b] = sortedSet(closeSet)

		c.assertPoolConsistency(ix, closeSet)
		poolBM.AndNot(ix.bitmapOfSet(closeSet))
		queue = filterOut(queue, closeSet)

		collapsedWindow = c.reportProgress(count, collapsedWindow, table.Size(), poolBM.GetCardinality())
	}

	c.logSummary(start, coreCount, count)
	return &AdaptiveResult{Clusters: result, Metrics: metrics}, nil
}

// CollapseAdaptiveAll runs adaptive collapse with every table key eligible as
// a core barcode, ordered by descending count.
func (c *Collapser) CollapseAdaptiveAll(table *freq.Table, findIndels bool, defaultEditDistance, minEditDistance, maxEditDistance int) (*AdaptiveResult, error) {
	return c.CollapseAdaptive(table.KeysOrderedByCount(true), table, findIndels, defaultEditDistance, minEditDistance, maxEditDistance)
}

func mergedObservations(b string, closeSet map[string]struct{}, table *freq.Table) int {
	total := table.CountOf(b)
	for bc := range closeSet {
		total += table.CountOf(bc)
	}
	return total
}

// reportProgress logs every reportInterval processed cores for large tables
// and returns the reset collapsed-window counter. Purely observational.
func (c *Collapser) reportProgress(count, collapsedWindow, tableSize int, poolLeft uint64) int {
	if c.reportInterval == 0 || count%c.reportInterval != 0 {
		return collapsedWindow
	}
	if tableSize > 10000 {
		c.log.Info("collapse progress",
			"processed", count,
			"pool_remaining", poolLeft,
			"collapsed_this_window", collapsedWindow)
	}
	return 0
}

func (c *Collapser) logSummary(start time.Time, coreCount, count int) {
	if !c.verbose {
		return
	}
	c.log.Info("collapse finished",
		"workers", c.workers,
		"duration", time.Since(start),
		"core_barcodes_in", coreCount,
		"core_barcodes_out", count,
		"cores_collapsed", coreCount-count)
}

func dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, bc := range list {
		if _, ok := seen[bc]; ok {
			continue
		}
		seen[bc] = struct{}{}
		out = append(out, bc)
	}
	return out
}

func filterOut(queue []string, drop map[string]struct{}) []string {
	if len(drop) == 0 {
		return queue
	}
	out := queue[:0]
	for _, bc := range queue {
		if _, ok := drop[bc]; !ok {
			out = append(out, bc)
		}
	}
	return out
}
