package collapse

import (
	roaring "github.com/RoaringBitmap/roaring"
)

// barcodeIndex assigns each barcode of a run a dense uint32 id so the working
// pools can be tracked as roaring bitmaps. Ids are assigned in first-seen
// order, so a bitmap iterated in ascending id order yields barcodes in the
// order they were registered (descending count for the engine pools).
type barcodeIndex struct {
	byID []string
	ids  map[string]uint32
}

func newBarcodeIndex(lists ...[]string) *barcodeIndex {
	ix := &barcodeIndex{ids: make(map[string]uint32)}
	for _, list := range lists {
		for _, bc := range list {
			if _, ok := ix.ids[bc]; ok {
				continue
			}
			ix.ids[bc] = uint32(len(ix.byID))
			ix.byID = append(ix.byID, bc)
		}
	}
	return ix
}

func (ix *barcodeIndex) id(bc string) (uint32, bool) {
	id, ok := ix.ids[bc]
	return id, ok
}

// bitmapOf returns a bitmap of the given barcodes; unknown barcodes are
// skipped.
func (ix *barcodeIndex) bitmapOf(bcs []string) *roaring.Bitmap {
	bm := roaring.New()
	for _, bc := range bcs {
		if id, ok := ix.ids[bc]; ok {
			bm.Add(id)
		}
	}
	return bm
}

// bitmapOfSet is bitmapOf for a set.
func (ix *barcodeIndex) bitmapOfSet(set map[string]struct{}) *roaring.Bitmap {
	bm := roaring.New()
	for bc := range set {
		if id, ok := ix.ids[bc]; ok {
			bm.Add(id)
		}
	}
	return bm
}

// strings materializes a bitmap back into barcodes in ascending id order.
func (ix *barcodeIndex) strings(bm *roaring.Bitmap) []string {
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, ix.byID[it.Next()])
	}
	return out
}
