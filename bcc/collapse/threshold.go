package collapse

import (
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// DistanceHistogram counts, for every member of universe, how many fall at
// each integer distance from target. The caller decides whether target itself
// belongs to the universe; if present it contributes a zero-distance bin.
func (c *Collapser) DistanceHistogram(target string, universe []string, findIndels bool) (map[int]int, error) {
	dist := metricFor(findIndels)
	if c.workers <= 1 {
		hist := make(map[int]int)
		for _, bc := range universe {
			d, err := dist(target, bc)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrWorker, err)
			}
			hist[d]++
		}
		return hist, nil
	}

	hist := make(map[int]int)
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(c.workers).WithErrors()
	for _, chunk := range chunkStrings(universe, c.workers) {
		p.Go(func() error {
			local := make(map[int]int)
			for _, bc := range chunk {
				d, err := dist(target, bc)
				if err != nil {
					return err
				}
				local[d]++
			}
			mu.Lock()
			for d, n := range local {
				hist[d] += n
			}
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorker, err)
	}
	return hist, nil
}

// DiscoverThreshold infers a per-target distance threshold from the empty
// bins of the distance-count histogram. Barcode variants pile up at small
// distances and unrelated barcodes at large ones; the first gap scanned
// upward from minScan is taken as the boundary between the two modes.
//
// Returns NoThreshold when no scanned bin is empty, 0 when every scanned bin
// is empty (nothing to separate), and otherwise the last filled position
// before the first gap, i.e. (first empty bin) - 1.
func (c *Collapser) DiscoverThreshold(target string, universe []string, findIndels bool, minScan, maxScan int) (int, error) {
	hist, err := c.DistanceHistogram(target, universe, findIndels)
	if err != nil {
		return 0, err
	}

	var emptyBins []int
	for i := minScan; i <= maxScan; i++ {
		if hist[i] == 0 {
			emptyBins = append(emptyBins, i)
		}
	}
	if len(emptyBins) == 0 {
		return NoThreshold, nil
	}
	// Degenerate case: the whole scanned range has zero density.
	if len(emptyBins) == maxScan-minScan+1 {
		return 0, nil
	}
	// emptyBins is ascending by construction; report the last filled
	// position before the first gap, not the gap itself.
	return emptyBins[0] - 1, nil
}
