package collapse

import (
	"fmt"

	"github.com/bcdtools/barcode-collapse/bcc/freq"
)

// BottomUpCollapse pairs barcodes smallest-count first with their single
// larger neighbor within editDistance, using the Hamming metric only. A
// barcode with exactly one larger neighbor pairs with it, but only when its
// count is strictly smaller; equal-count pairs are never merged, which avoids
// ordering artifacts between equally sized barcodes. A barcode with several
// larger neighbors is recorded as ambiguous and left unresolved; one with
// none is left out entirely. The largest barcode has nothing to collapse
// into and is never evaluated.
func (c *Collapser) BottomUpCollapse(table *freq.Table, editDistance int) (*BottomUpResult, error) {
	result := NewBottomUpResult()

	ascending := table.KeysOrderedByCount(false)
	for i := 0; i < len(ascending)-1; i++ {
		small := ascending[i]
		larger := ascending[i+1:]

		matches, err := c.Neighbors(small, larger, false, editDistance)
		if err != nil {
			return nil, fmt.Errorf("bottom-up collapse of %q: %w", small, err)
		}

		switch {
		case len(matches) == 1:
			var large string
			for bc := range matches {
				large = bc
			}
			if table.CountOf(small) < table.CountOf(large) {
				result.AddPair(small, large)
			}
		case len(matches) > 1:
			result.AddAmbiguous(small)
		}
	}
	return result, nil
}
