package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHamming(t *testing.T) {
	t.Run("counts substitutions", func(t *testing.T) {
		cases := []struct {
			a, b string
			want int
		}{
			{"AAAA", "AAAA", 0},
			{"AAAA", "AAAT", 1},
			{"AAAA", "TTTT", 4},
			{"ACGT", "AGGA", 2},
			{"", "", 0},
		}
		for _, tc := range cases {
			d, err := Hamming(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, d, "Hamming(%q, %q)", tc.a, tc.b)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		ab, err := Hamming("ACGTACGT", "ACTTACGA")
		require.NoError(t, err)
		ba, err := Hamming("ACTTACGA", "ACGTACGT")
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	})

	t.Run("unequal lengths error", func(t *testing.T) {
		_, err := Hamming("AAAA", "AAA")
		assert.Error(t, err)
	})
}

func TestIndel(t *testing.T) {
	t.Run("tolerates insertions and deletions", func(t *testing.T) {
		cases := []struct {
			a, b string
			want int
		}{
			{"AAAA", "AAAA", 0},
			{"AAAA", "AAA", 1},
			{"ACGT", "AGT", 1},
			{"ACGT", "ACGTT", 1},
			{"AAAA", "AAAT", 1},
			{"kitten", "sitting", 3},
			{"", "ACGT", 4},
			{"ACGT", "", 4},
		}
		for _, tc := range cases {
			d, err := Indel(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, d, "Indel(%q, %q)", tc.a, tc.b)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		ab, err := Indel("ACGTAC", "ACTACG")
		require.NoError(t, err)
		ba, err := Indel("ACTACG", "ACGTAC")
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	})

	t.Run("shifted barcode stays close", func(t *testing.T) {
		// One slipped base near the start is a single indel, not a
		// cascade of substitutions.
		d, err := Indel("TACGTACG", "ACGTACGA")
		require.NoError(t, err)
		h, err := Hamming("TACGTACG", "ACGTACGA")
		require.NoError(t, err)
		assert.Less(t, d, h)
	})
}
