package collapse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceHistogram(t *testing.T) {
	c := New()

	t.Run("counts members per distance", func(t *testing.T) {
		hist, err := c.DistanceHistogram("AAAA", []string{"AAAA", "AAAT", "AATT", "ATTT", "TTTT", "GAAA"}, false)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 1, 3: 1, 4: 1}, hist)
	})

	t.Run("parallel equals sequential", func(t *testing.T) {
		universe := []string{"AAAA", "AAAT", "AATT", "ATTT", "TTTT", "GAAA", "GGAA", "CCCC"}
		seqHist, err := New(WithWorkers(1)).DistanceHistogram("AAAA", universe, false)
		require.NoError(t, err)
		parHist, err := New(WithWorkers(4)).DistanceHistogram("AAAA", universe, false)
		require.NoError(t, err)
		assert.Equal(t, seqHist, parHist)
	})

	t.Run("metric failure propagates", func(t *testing.T) {
		_, err := c.DistanceHistogram("AAAA", []string{"AAA"}, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrWorker))
	})
}

func TestDiscoverThreshold(t *testing.T) {
	c := New()

	t.Run("first gap separates the modes", func(t *testing.T) {
		// Neighbor mode at distances {0,1}, gap at 2, noise resuming
		// at 3: the inferred boundary is the last filled position, 1.
		universe := []string{
			"AAAAAAAA", // self, distance 0
			"AAAAAAAT", // distance 1
			"AAAAATTT", // distance 3
			"AAAATTTT", // distance 4
		}
		got, err := c.DiscoverThreshold("AAAAAAAA", universe, false, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("no empty bin in range returns sentinel", func(t *testing.T) {
		universe := []string{"AAAT", "AATT"} // distances 1 and 2
		got, err := c.DiscoverThreshold("AAAA", universe, false, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, NoThreshold, got)
	})

	t.Run("entirely empty scan range returns zero", func(t *testing.T) {
		universe := []string{"AAAA"} // only the self bin at distance 0
		got, err := c.DiscoverThreshold("AAAA", universe, false, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("distances outside the scan range still fill the histogram", func(t *testing.T) {
		// The histogram is computed over all distances present, so a
		// member at distance 4 keeps bin 4 non-empty even though the
		// scan stops there.
		universe := []string{"AAAT", "TTTT"} // distances 1 and 4
		got, err := c.DiscoverThreshold("AAAA", universe, false, 1, 4)
		require.NoError(t, err)
		// Bins 2 and 3 are empty; the first gap is at 2.
		assert.Equal(t, 1, got)
	})
}
