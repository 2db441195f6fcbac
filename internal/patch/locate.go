package patch

import "bytes"

// Locate searches image[anchor:anchor+window] (clipped to the image) for the
// target of a sub-edit and returns its absolute offset.
//
// Offsets are tried in ascending order. At each offset the literal after
// bytes are checked first and yield ErrAlreadyApplied; otherwise a before
// match ends the search. The first hit wins: the window is assumed to hold at
// most one legitimate candidate. ErrUnavailable is returned when neither
// occurs before the window is exhausted.
func Locate(image []byte, anchor, window int, before, after []byte) (int, error) {
	if anchor < 0 || anchor > len(image) || window < 0 || len(before) == 0 {
		return -1, ErrUnavailable
	}
	end := len(image)
	if window < end-anchor {
		end = anchor + window
	}
	region := image[anchor:end]

	i := firstIndex(len(region)-len(before)+1, func(i int) bool {
		chunk := region[i : i+len(before)]
		return bytes.Equal(chunk, after) || Match(chunk, before)
	})
	if i < 0 {
		return -1, ErrUnavailable
	}
	if bytes.Equal(region[i:i+len(before)], after) {
		return anchor + i, ErrAlreadyApplied
	}
	return anchor + i, nil
}

// firstIndex returns the smallest i in [0, n) for which pred holds, or -1.
func firstIndex(n int, pred func(int) bool) int {
	for i := 0; i < n; i++ {
		if pred(i) {
			return i
		}
	}
	return -1
}
