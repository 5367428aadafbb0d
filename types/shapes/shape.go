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

// Package shapes defines Shape and the shape algebra used to combine
// heterogeneously shaped sweep inputs into one execution grid.
//
// A Shape is an ordered tuple of non-negative axis sizes. Zero-sized axes
// are legal and denote empty grids.
//
// ## Glossary
//
//   - Rank: number of axes of an array.
//   - Axis: the index of a dimension of a multidimensional array. We refer
//     to a dimension index as "axis" (plural axes), and to its size as its
//     dimension.
//   - Extrinsic axis: a caller-chosen sweep axis, subject to broadcasting.
//   - Intrinsic axis: an axis whose size is fixed by the meaning of the
//     datum it belongs to, e.g. a circuit's parameter count, or
//     shots x register-width for a readout channel.
//   - Broadcasting: the compatibility rule under which shapes are aligned
//     from their rightmost axis, and any axis of size 1 stretches to match
//     a larger size at the same position.
//
// The three operations of the algebra are Broadcast, Split and
// ResolveRequested. They return wrapped sentinel errors (ErrIncompatible,
// ErrTooShort, ErrNotBroadcastableFromRequested) that callers match with
// errors.Is.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
)

// Shape is an ordered tuple of non-negative axis sizes.
//
// Use Make to create a new shape. The zero value is a valid scalar shape
// (rank 0, size 1).
type Shape struct {
	Dimensions []int
}

// Make returns a Shape with the given dimensions. It panics if any
// dimension is negative; zero-sized axes are accepted.
func Make(dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with a negative axis dimension", s)
		}
	}
	return s
}

// Scalar returns the rank-0 shape. Its Size is 1: a scalar grid holds
// exactly one point.
func Scalar() Shape {
	return Shape{}
}

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape has no axes (rank 0).
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative
// numbers, in which case it counts from the end -- so axis=-1 refers to the
// last axis. Like slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return "()"
	}
	return fmt.Sprintf("%v", s.Dimensions)
}

// Size returns the number of grid points addressed by the shape, the
// product of all dimensions. A scalar shape has size 1; any zero-sized
// axis makes the size 0.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Equal compares two shapes for equality of rank and dimensions.
func (s Shape) Equal(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{Dimensions: slices.Clone(s.Dimensions)}
}

// HasShape is anything that can report a Shape: arrays, result channels,
// the Shape itself.
type HasShape interface {
	Shape() Shape
}

// Concatenate returns the shape whose axes are s1's axes followed by s2's.
// The resulting rank is the sum of both ranks. If either is a scalar the
// result is a copy of the other.
func Concatenate(s1, s2 Shape) (shape Shape) {
	if s1.IsScalar() {
		return s2.Clone()
	}
	if s2.IsScalar() {
		return s1.Clone()
	}
	shape.Dimensions = make([]int, s1.Rank()+s2.Rank())
	copy(shape.Dimensions, s1.Dimensions)
	copy(shape.Dimensions[s1.Rank():], s2.Dimensions)
	return
}
