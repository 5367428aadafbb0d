package shapes

import "iter"

// Iter iterates over all multi-indices of the shape in row-major order:
// the leftmost axis varies slowest, the rightmost fastest. This order is
// the canonical linearization of a sweep grid; flattening with Iter and
// reshaping back is the identity.
//
// To avoid allocating a slice per step, the yielded indices slice is owned
// by Iter: don't retain or modify it inside the loop.
//
// A scalar shape yields exactly one empty multi-index. A shape with any
// zero-sized axis yields nothing.
func (s Shape) Iter() iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		rank := s.Rank()
		if rank == 0 {
			_ = yield(make([]int, 0))
			return
		}
		for _, dimSize := range s.Dimensions {
			if dimSize <= 0 {
				return
			}
		}

		currentIndices := make([]int, rank)
		// An N-dimensional counter over the indices.
		for {
			if !yield(currentIndices) {
				return
			}

			// Increment to the next coordinates, rightmost axis fastest.
			axis := rank - 1
			for ; axis >= 0; axis-- {
				if s.Dimensions[axis] == 1 {
					// Nothing to iterate at this axis.
					continue
				}
				currentIndices[axis]++
				if currentIndices[axis] < s.Dimensions[axis] {
					break
				}
				// Overflowed: reset and carry over to the next
				// higher-order axis.
				currentIndices[axis] = 0
			}
			if axis < 0 {
				break
			}
		}
	}
}
