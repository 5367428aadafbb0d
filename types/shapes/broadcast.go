/*
 *	Copyright 2025 The qsweep authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package shapes

import (
	"github.com/pkg/errors"
)

var (
	// ErrIncompatible is returned by Broadcast when two shapes define
	// unequal sizes at the same (right-aligned) axis and neither is 1.
	ErrIncompatible = errors.New("shapes are not mutually broadcastable")

	// ErrTooShort is returned by Split when a shape has fewer axes than
	// the intrinsic rank being split off.
	ErrTooShort = errors.New("shape has fewer axes than the declared intrinsic rank")

	// ErrNotBroadcastableFromRequested is returned by ResolveRequested
	// when the requested shape cannot be reached by broadcasting from the
	// implicit extrinsic shape.
	ErrNotBroadcastableFromRequested = errors.New("requested shape is not broadcastable from the implicit extrinsic shape")
)

// Broadcast combines the given shapes under the standard right-aligned
// broadcasting rule: the output rank is the maximum rank, and at each
// right-aligned axis position the output size is the maximum among the
// shapes that define that axis, provided every defining size is either
// that maximum or 1.
//
// Broadcast of no shapes is the scalar shape. A genuine conflict (two
// unequal sizes, neither of them 1) returns an error wrapping
// ErrIncompatible.
func Broadcast(shapes ...Shape) (Shape, error) {
	rank := 0
	for _, s := range shapes {
		rank = max(rank, s.Rank())
	}
	if rank == 0 {
		return Scalar(), nil
	}
	output := Shape{Dimensions: make([]int, rank)}
	for axis := range output.Dimensions {
		dim := 1
		for _, s := range shapes {
			// Right-aligned: axis i of the output pairs with axis
			// i-(rank-s.Rank()) of s, when that is in range.
			sAxis := axis - (rank - s.Rank())
			if sAxis < 0 {
				continue
			}
			sDim := s.Dimensions[sAxis]
			if sDim == dim || sDim == 1 {
				continue
			}
			if dim == 1 {
				dim = sDim
				continue
			}
			return Shape{}, errors.Wrapf(ErrIncompatible,
				"axis %d (right-aligned) has conflicting sizes %d and %d in shapes %v",
				axis, dim, sDim, shapes)
		}
		output.Dimensions[axis] = dim
	}
	return output, nil
}

// Split separates a full array shape into its extrinsic (leading) and
// intrinsic (rightmost intrinsicRank axes) parts. It returns an error
// wrapping ErrTooShort if the shape has fewer than intrinsicRank axes.
func Split(full Shape, intrinsicRank int) (extrinsic, intrinsic Shape, err error) {
	if intrinsicRank < 0 {
		err = errors.Errorf("Split: intrinsic rank must be non-negative, got %d", intrinsicRank)
		return
	}
	if full.Rank() < intrinsicRank {
		err = errors.Wrapf(ErrTooShort, "shape %s has rank %d, cannot split off %d intrinsic axes",
			full, full.Rank(), intrinsicRank)
		return
	}
	cut := full.Rank() - intrinsicRank
	extrinsic = Make(full.Dimensions[:cut]...)
	intrinsic = Make(full.Dimensions[cut:]...)
	return
}

// ResolveRequested resolves an optional requested extrinsic shape against
// the implicit extrinsic shape an item's inputs broadcast to.
//
// The two shapes are aligned from the right. At each aligned position:
// if the implicit axis is absent or has size 1, the requested size is
// accepted as-is (it is an independent-randomization axis); if the
// implicit axis has size >1 it must equal the requested size exactly.
// Extra leading axes of requested beyond the implicit rank are always
// accepted as randomization axes.
//
// Broadcasting never drops axes, so a requested shape with fewer axes
// than implicit is rejected even when its trailing sizes match. A
// mismatch returns an error wrapping ErrNotBroadcastableFromRequested.
func ResolveRequested(implicit, requested Shape) (Shape, error) {
	if requested.Rank() < implicit.Rank() {
		return Shape{}, errors.Wrapf(ErrNotBroadcastableFromRequested,
			"requested shape %s has rank %d, lower than the implicit extrinsic shape %s (rank %d)",
			requested, requested.Rank(), implicit, implicit.Rank())
	}
	offset := requested.Rank() - implicit.Rank()
	for axis, implicitDim := range implicit.Dimensions {
		requestedDim := requested.Dimensions[offset+axis]
		if implicitDim == 1 || implicitDim == requestedDim {
			continue
		}
		return Shape{}, errors.Wrapf(ErrNotBroadcastableFromRequested,
			"requested shape %s conflicts with implicit extrinsic shape %s: axis %d of requested has size %d, implicit counterpart has size %d (neither equal nor stretchable)",
			requested, implicit, offset+axis, requestedDim, implicitDim)
	}
	return requested.Clone(), nil
}
