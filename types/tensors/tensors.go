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

// Package tensors provides Dense, a row-major multidimensional array used
// for sweep argument values (float64) and readout channels (uint8).
//
// Dense is deliberately small: the sweep engine only needs positional
// access, broadcast-aware gathering of sub-arrays at a grid point, and
// stacking per-execution results back into a grid. Anything resembling
// numerical computation on the arrays is out of scope.
package tensors

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/qsweep/qsweep/types/shapes"
	"golang.org/x/exp/constraints"
)

// Supported are the element types Dense can hold.
type Supported interface {
	constraints.Integer | constraints.Float
}

// Dense is a dense row-major array of a fixed shape.
//
// The zero value is not usable; create values with New, FromFlat or
// FromScalar. Methods panic (with a stack trace, see
// github.com/gomlx/exceptions) on out-of-bounds access or shape misuse:
// those are programming errors, not data errors.
type Dense[T Supported] struct {
	shape shapes.Shape
	flat  []T
}

// New returns a zero-initialized Dense of the given shape.
func New[T Supported](shape shapes.Shape) *Dense[T] {
	return &Dense[T]{shape: shape.Clone(), flat: make([]T, shape.Size())}
}

// FromFlat wraps the given row-major flat data into a Dense of the given
// dimensions. The data is NOT copied; the caller hands over ownership.
// It panics if the length of flat doesn't match the shape size.
func FromFlat[T Supported](flat []T, dimensions ...int) *Dense[T] {
	shape := shapes.Make(dimensions...)
	if len(flat) != shape.Size() {
		exceptions.Panicf("tensors.FromFlat: %d elements given for shape %s (size %d)",
			len(flat), shape, shape.Size())
	}
	return &Dense[T]{shape: shape, flat: flat}
}

// FromScalar returns a rank-0 Dense holding the single value.
func FromScalar[T Supported](value T) *Dense[T] {
	return &Dense[T]{shape: shapes.Scalar(), flat: []T{value}}
}

// Shape of the array. It implements shapes.HasShape.
func (d *Dense[T]) Shape() shapes.Shape { return d.shape }

// Rank of the array, a shortcut to d.Shape().Rank().
func (d *Dense[T]) Rank() int { return d.shape.Rank() }

// Size is the total number of elements.
func (d *Dense[T]) Size() int { return len(d.flat) }

// Flat returns the underlying row-major data. Shared, not a copy.
func (d *Dense[T]) Flat() []T { return d.flat }

// String pretty-prints the element type and shape, not the contents.
func (d *Dense[T]) String() string {
	var zero T
	return fmt.Sprintf("Dense[%T]%s", zero, d.shape)
}

// flatIndex converts a full multi-index to the row-major flat position.
func (d *Dense[T]) flatIndex(indices []int) int {
	if len(indices) != d.Rank() {
		exceptions.Panicf("Dense.flatIndex: got %d indices for rank %d array", len(indices), d.Rank())
	}
	pos := 0
	for axis, idx := range indices {
		dim := d.shape.Dimensions[axis]
		if idx < 0 || idx >= dim {
			exceptions.Panicf("Dense.flatIndex: index %d out-of-bounds for axis %d (dimension %d)", idx, axis, dim)
		}
		pos = pos*dim + idx
	}
	return pos
}

// Value returns the element at the given multi-index.
func (d *Dense[T]) Value(indices ...int) T {
	return d.flat[d.flatIndex(indices)]
}

// Set assigns the element at the given multi-index.
func (d *Dense[T]) Set(value T, indices ...int) {
	d.flat[d.flatIndex(indices)] = value
}

// Equal reports whether both arrays have the same shape and contents.
func (d *Dense[T]) Equal(other *Dense[T]) bool {
	return d.shape.Equal(other.shape) && slices.Equal(d.flat, other.flat)
}

// Clone returns a deep copy.
func (d *Dense[T]) Clone() *Dense[T] {
	return &Dense[T]{shape: d.shape.Clone(), flat: slices.Clone(d.flat)}
}

// Reshape returns a view of the same data under a new shape of identical
// size. The data is shared.
func (d *Dense[T]) Reshape(dimensions ...int) *Dense[T] {
	shape := shapes.Make(dimensions...)
	if shape.Size() != d.Size() {
		exceptions.Panicf("Dense.Reshape: cannot reshape %s (size %d) to %s (size %d)",
			d.shape, d.Size(), shape, shape.Size())
	}
	return &Dense[T]{shape: shape, flat: d.flat}
}

// GatherAt returns the intrinsic sub-array of this array at one point of
// the grid, under broadcasting rules.
//
// The rightmost intrinsicRank axes of the array are its intrinsic part;
// the remaining leading axes are extrinsic and are right-aligned against
// the grid shape that gridIndices addresses. Any extrinsic axis of size 1
// maps to index 0 regardless of the grid position; extrinsic axes the
// array doesn't have are skipped. The array's extrinsic part must be
// broadcastable to the grid, which planning has already validated.
//
// The returned sub-array has the intrinsic shape and shares no data with
// the source.
func (d *Dense[T]) GatherAt(gridIndices []int, intrinsicRank int) *Dense[T] {
	extRank := d.Rank() - intrinsicRank
	if extRank < 0 {
		exceptions.Panicf("Dense.GatherAt: array %s has fewer axes than intrinsic rank %d", d.shape, intrinsicRank)
	}
	if extRank > len(gridIndices) {
		exceptions.Panicf("Dense.GatherAt: array %s has %d extrinsic axes but the grid index has only %d",
			d.shape, extRank, len(gridIndices))
	}
	intrinsic := shapes.Make(d.shape.Dimensions[extRank:]...)
	blockSize := intrinsic.Size()

	// Row-major offset over the extrinsic axes; size-1 axes pin to 0.
	offset := 0
	gridOffset := len(gridIndices) - extRank
	for axis := 0; axis < extRank; axis++ {
		dim := d.shape.Dimensions[axis]
		idx := 0
		if dim > 1 {
			idx = gridIndices[gridOffset+axis]
			if idx >= dim {
				exceptions.Panicf("Dense.GatherAt: grid index %d out-of-bounds for extrinsic axis %d (dimension %d) of %s",
					idx, axis, dim, d.shape)
			}
		}
		offset = offset*dim + idx
	}
	block := make([]T, blockSize)
	copy(block, d.flat[offset*blockSize:(offset+1)*blockSize])
	return &Dense[T]{shape: intrinsic, flat: block}
}

// Stack concatenates the given equally shaped arrays along a new set of
// leading axes given by grid, whose size must equal len(parts). The parts
// are laid out in the order given, so parts enumerated in row-major grid
// order produce the grid-shaped result directly: final shape is
// grid + part shape.
func Stack[T Supported](parts []*Dense[T], grid shapes.Shape) *Dense[T] {
	if len(parts) != grid.Size() {
		exceptions.Panicf("tensors.Stack: %d parts for grid %s (size %d)", len(parts), grid, grid.Size())
	}
	if len(parts) == 0 {
		return New[T](grid)
	}
	partShape := parts[0].shape
	flat := make([]T, 0, grid.Size()*partShape.Size())
	for ii, part := range parts {
		if !part.shape.Equal(partShape) {
			exceptions.Panicf("tensors.Stack: part %d has shape %s, others have %s", ii, part.shape, partShape)
		}
		flat = append(flat, part.flat...)
	}
	return &Dense[T]{shape: shapes.Concatenate(grid, partShape), flat: flat}
}
