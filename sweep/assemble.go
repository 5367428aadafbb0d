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

package sweep

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/qsweep/qsweep/types"
	"github.com/qsweep/qsweep/types/shapes"
	"github.com/qsweep/qsweep/types/tensors"
)

// RawResult is the output of one executed unit: a mapping from channel
// name to the per-execution array of that channel's intrinsic shape, e.g.
// (shots, register_width) for a readout channel. Derived channels (such as
// per-shot correction masks) ride along under their own names and are
// treated identically.
type RawResult map[string]*tensors.Dense[uint8]

// Result is one item's assembled output: per channel name, an array of
// shape extrinsic + intrinsic.
type Result map[string]*tensors.Dense[uint8]

// Assemble reshapes the flat per-execution results of one item back into
// grid-shaped channel arrays.
//
// raw must hold exactly one entry per flattened execution, in planner
// (row-major) order; ErrIncompleteExecution otherwise. Every execution
// must report the same channel names with consistent per-execution
// shapes; ErrChannelSetMismatch otherwise. Each channel is stacked along
// a new leading axis of length prod(extrinsic) and that axis reshaped
// into the extrinsic shape, giving final shape extrinsic + intrinsic.
//
// An empty grid (a zero-sized extrinsic axis) assembles to an empty
// Result: with no executions there are no channel names to report.
func Assemble(ip *ItemPlan, raw []RawResult) (Result, error) {
	grid := ip.Extrinsic
	if len(raw) != grid.Size() {
		return nil, errors.Wrapf(ErrIncompleteExecution,
			"%d raw results for a grid %s of %d executions", len(raw), grid, grid.Size())
	}
	if len(raw) == 0 {
		return Result{}, nil
	}

	channels := types.MakeSet[string](len(raw[0]))
	names := make([]string, 0, len(raw[0]))
	for name := range raw[0] {
		channels.Insert(name)
		names = append(names, name)
	}
	for position, unitResult := range raw {
		got := types.MakeSet[string](len(unitResult))
		for name := range unitResult {
			got.Insert(name)
		}
		if !got.Equal(channels) {
			return nil, errors.Wrapf(ErrChannelSetMismatch,
				"execution %d reports channels %v, execution 0 reported %v",
				position, sortedKeys(got), sortedKeys(channels))
		}
	}

	assembled := make(Result, len(names))
	for _, name := range names {
		intrinsic := raw[0][name].Shape()
		parts := make([]*tensors.Dense[uint8], len(raw))
		for position, unitResult := range raw {
			part := unitResult[name]
			if !part.Shape().Equal(intrinsic) {
				return nil, errors.Wrapf(ErrChannelSetMismatch,
					"channel %q has shape %s at execution %d but %s at execution 0",
					name, part.Shape(), position, intrinsic)
			}
			parts[position] = part
		}
		assembled[name] = tensors.Stack(parts, grid)
	}
	return assembled, nil
}

// AssembleAll assembles every item of the plan. perItemRaw is indexed like
// plan.Items, each entry the item's raw results in planner order. Any
// failure aborts the whole assembly: one job submission shares one unit
// ordering across items, so a broken correlation anywhere means the
// backend's contract was violated for the batch.
func (p *Plan) AssembleAll(perItemRaw [][]RawResult) ([]Result, error) {
	if len(perItemRaw) != len(p.Items) {
		return nil, errors.Wrapf(ErrIncompleteExecution,
			"raw results for %d items, plan has %d", len(perItemRaw), len(p.Items))
	}
	assembled := make([]Result, 0, len(p.Items))
	for itemIdx, ip := range p.Items {
		result, err := Assemble(ip, perItemRaw[itemIdx])
		if err != nil {
			return nil, errors.WithMessagef(err, "assembling item #%d", itemIdx)
		}
		assembled = append(assembled, result)
	}
	return assembled, nil
}

// ChannelShape returns the final assembled shape of one channel of the
// item: extrinsic + (shots, bits). Useful for pre-allocating or
// validating consumers.
func (ip *ItemPlan) ChannelShape(shots int, reg Register) shapes.Shape {
	return shapes.Concatenate(ip.Extrinsic, shapes.Make(shots, reg.Bits))
}

// sortedKeys keeps error messages deterministic.
func sortedKeys(s types.Set[string]) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
