// Package collapse clusters noisy barcodes into groups represented by a
// canonical barcode, assuming minor variants are sequencing or synthesis
// errors of a true barcode. Three engines are provided: fixed-threshold
// greedy collapse, per-barcode adaptive-threshold collapse, and unambiguous
// bottom-up merging.
package collapse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/sourcegraph/conc/pool"

	"github.com/bcdtools/barcode-collapse/bcc/metric"
)

// NoThreshold is returned by DiscoverThreshold when the scanned range holds
// no empty histogram bin. It is an expected outcome, not an error; callers
// fall back to their default edit distance.
const NoThreshold = -1

// Collapser runs the collapse algorithms. The worker count is fixed at
// construction; a Collapser is reusable across runs but each run's working
// pools are owned by that invocation alone.
type Collapser struct {
	workers        int
	reportInterval int
	verbose        bool
	log            *slog.Logger
	assert         *assert.AssertHandler
}

// Option configures a Collapser.
type Option func(*Collapser)

// WithWorkers bounds the per-target fan-out. Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(c *Collapser) { c.workers = n }
}

// WithReportInterval sets how many processed core barcodes elapse between
// progress log lines. 0 disables progress reporting.
func WithReportInterval(n int) Option {
	return func(c *Collapser) { c.reportInterval = n }
}

// WithVerbose enables the end-of-run summary log line.
func WithVerbose(v bool) Option {
	return func(c *Collapser) { c.verbose = v }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collapser) { c.log = l }
}

// New creates a Collapser. Defaults: 1 worker, progress every 100000 cores.
func New(opts ...Option) *Collapser {
	c := &Collapser{
		workers:        1,
		reportInterval: 100000,
		log:            slog.Default(),
		assert:         assert.NewAssertHandler(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// assertPoolConsistency fires when an absorbed barcode cannot be resolved to
// a run-index id. An unresolvable member would be skipped by the bitmap
// bulk-removal and linger in the pool, so this is a programming error, not a
// recoverable condition.
func (c *Collapser) assertPoolConsistency(ix *barcodeIndex, closeSet map[string]struct{}) {
	for bc := range closeSet {
		_, ok := ix.id(bc)
		c.assert.Assert(context.Background(), ok, "absorbed barcode missing from the run index: "+bc)
	}
}

func metricFor(findIndels bool) metric.Func {
	if findIndels {
		return metric.Indel
	}
	return metric.Hamming
}

// Neighbors returns every candidate within maxDistance of target, using the
// indel-sensitive metric when findIndels is true and Hamming otherwise. The
// candidate slice is never modified. With more than one worker the scan fans
// out over candidate chunks; the result is identical to the sequential scan.
func (c *Collapser) Neighbors(target string, candidates []string, findIndels bool, maxDistance int) (map[string]struct{}, error) {
	dist := metricFor(findIndels)
	if c.workers <= 1 {
		out := make(map[string]struct{})
		for _, cand := range candidates {
			d, err := dist(target, cand)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrWorker, err)
			}
			if d <= maxDistance {
				out[cand] = struct{}{}
			}
		}
		return out, nil
	}

	out := make(map[string]struct{})
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(c.workers).WithErrors()
	for _, chunk := range chunkStrings(candidates, c.workers) {
		p.Go(func() error {
			var hits []string
			for _, cand := range chunk {
				d, err := dist(target, cand)
				if err != nil {
					return err
				}
				if d <= maxDistance {
					hits = append(hits, cand)
				}
			}
			if len(hits) > 0 {
				mu.Lock()
				for _, h := range hits {
					out[h] = struct{}{}
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorker, err)
	}
	return out, nil
}

// chunkStrings splits list into at most n contiguous chunks of near-equal
// size.
func chunkStrings(list []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	if n > len(list) {
		n = len(list)
	}
	if n == 0 {
		return nil
	}
	chunks := make([][]string, 0, n)
	size := (len(list) + n - 1) / n
	for start := 0; start < len(list); start += size {
		end := start + size
		if end > len(list) {
			end = len(list)
		}
		chunks = append(chunks, list[start:end])
	}
	return chunks
}
