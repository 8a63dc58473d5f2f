// Package metric implements the string-distance primitives the collapse
// engines consume.
package metric

import "fmt"

// Func is the contract the engines depend on: a symmetric distance between
// two barcodes. Implementations report an error when the inputs are outside
// their domain (e.g. unequal lengths for Hamming).
type Func func(a, b string) (int, error)

// Hamming returns the number of substitutions between two equal-length
// barcodes.
func Hamming(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("hamming: unequal lengths %d and %d", len(a), len(b))
	}
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d, nil
}

// Indel returns an indel-sensitive edit distance: the minimum number of
// substitutions, insertions and deletions turning a into b. Unlike Hamming it
// tolerates differing lengths, so a single slipped base near the start does
// not cascade into a large distance.
func Indel(a, b string) (int, error) {
	if a == b {
		return 0, nil
	}
	if len(a) == 0 {
		return len(b), nil
	}
	if len(b) == 0 {
		return len(a), nil
	}

	// Two-row dynamic program; prev[j] is the distance between a[:i] and b[:j].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub++
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			cur[j] = min(sub, del, ins)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)], nil
}
