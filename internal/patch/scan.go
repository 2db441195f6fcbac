package patch

// ScanAll returns every offset at which anchor matches the image, in
// ascending order.
func ScanAll(image, anchor []byte) []int {
	return scan(image, anchor, -1)
}

// FindUnique returns the only offset at which anchor matches the image.
// It fails with ErrUnavailable when there is no match and with
// ErrMultiplePossibleLocations when there is more than one.
func FindUnique(image, anchor []byte) (int, error) {
	switch offsets := scan(image, anchor, 2); len(offsets) {
	case 0:
		return -1, ErrUnavailable
	case 1:
		return offsets[0], nil
	default:
		return -1, ErrMultiplePossibleLocations
	}
}

// scan collects match offsets, stopping once limit are found. A negative
// limit collects them all.
func scan(image, anchor []byte, limit int) []int {
	var offsets []int
	if len(anchor) == 0 || len(anchor) > len(image) {
		return offsets
	}
	for off := 0; off <= len(image)-len(anchor); off++ {
		if !Match(image[off:off+len(anchor)], anchor) {
			continue
		}
		offsets = append(offsets, off)
		if len(offsets) == limit {
			break
		}
	}
	return offsets
}
