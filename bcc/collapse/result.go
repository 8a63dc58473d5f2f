package collapse

import "sort"

// Result maps each surviving core barcode to the barcodes absorbed into it,
// sorted lexicographically. Cores that absorbed nothing map to an empty list.
type Result map[string][]string

// Members returns every absorbed barcode across all cores.
func (r Result) Members() []string {
	var out []string
	for _, members := range r {
		out = append(out, members...)
	}
	sort.Strings(out)
	return out
}

// MappingMetric records, for one processed core barcode, how the adaptive
// engine treated it. One metric is emitted per core barcode whether or not it
// absorbed any neighbors.
type MappingMetric struct {
	Barcode                string
	NumMerged              int
	EditDistanceUsed       int
	EditDistanceDiscovered int
	OriginalObservations   int
	TotalObservations      int
}

// AdaptiveResult is the composite output of CollapseAdaptive.
type AdaptiveResult struct {
	Clusters Result
	Metrics  []MappingMetric
}

// BottomUpResult holds the unambiguous small -> large pairings plus the set
// of barcodes withheld because more than one larger neighbor was plausible.
type BottomUpResult struct {
	Pairs     map[string]string
	Ambiguous map[string]struct{}
}

// NewBottomUpResult returns an empty result.
func NewBottomUpResult() *BottomUpResult {
	return &BottomUpResult{
		Pairs:     make(map[string]string),
		Ambiguous: make(map[string]struct{}),
	}
}

// AddPair records that small unambiguously collapses into large.
func (r *BottomUpResult) AddPair(small, large string) {
	r.Pairs[small] = large
}

// AddAmbiguous withholds small from pairing.
func (r *BottomUpResult) AddAmbiguous(small string) {
	r.Ambiguous[small] = struct{}{}
}

// LargerOf returns the barcode small collapses into, if any.
func (r *BottomUpResult) LargerOf(small string) (string, bool) {
	large, ok := r.Pairs[small]
	return large, ok
}

// IsAmbiguous reports whether small had more than one plausible larger
// neighbor.
func (r *BottomUpResult) IsAmbiguous(small string) bool {
	_, ok := r.Ambiguous[small]
	return ok
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for bc := range set {
		out = append(out, bc)
	}
	sort.Strings(out)
	return out
}
