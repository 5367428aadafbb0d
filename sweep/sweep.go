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

// Package sweep builds batches of quantum-circuit executions out of
// heterogeneously shaped parameter sweeps, and reassembles the returned
// per-shot data into predictably shaped result arrays.
//
// A Program is an ordered sequence of items, each describing one circuit
// task: a static circuit, a circuit with an explicit parameter-value
// array, or a circuit template whose concrete parameters are drawn by an
// external Randomizer once per grid point. The shapes of all arrays
// feeding one item are combined under broadcasting rules (see
// types/shapes) into that item's extrinsic sweep grid.
//
// Program.Plan flattens every item's grid into an ordered list of
// ExecutionUnits, in row-major order over the grid. After the backend ran
// the units, Assemble stacks the flat per-execution channel arrays back
// into grid-shaped results: a channel with intrinsic per-execution shape
// (shots, width) on an item with extrinsic shape E comes back with shape
// E + (shots, width).
//
// The planner's linearization and the assembler's reshape use the same
// row-major order, so no scatter or sort step happens in between. Anything
// delivering backend results out of submission order must re-sort them by
// unit position first (see the backends package).
//
// All validation is fail-fast: shape conflicts surface when an item is
// appended or when Plan runs, never during assembly.
package sweep

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/qsweep/qsweep/types/shapes"
	"github.com/qsweep/qsweep/types/tensors"
)

// Register describes one named classical register of a circuit: its name
// is a result-channel name, its bit width the channel's trailing intrinsic
// axis.
type Register struct {
	Name string
	Bits int
}

// Circuit is the opaque reference to a circuit this engine consumes. Only
// declared counts and names matter here; transpilation, validation and the
// physical representation belong to the caller.
type Circuit interface {
	// NumParams returns the number of free parameters the circuit declares.
	NumParams() int

	// Registers lists the circuit's named classical registers with their
	// bit widths.
	Registers() []Register
}

// ArgSpec declares one named randomizer argument: its name and the
// intrinsic rank of the array bound to it. The rightmost IntrinsicRank
// axes of a bound array are fixed by the argument's meaning; any leading
// axes are extrinsic sweep axes.
type ArgSpec struct {
	Name          string
	IntrinsicRank int
}

// Randomizer produces one concrete parameter draw per grid point from the
// arguments bound at that point. It is an external capability: the engine
// only relies on ArgSpecs for shape validation and on Sample being called
// exactly once per grid point.
type Randomizer interface {
	// ArgSpecs declares the accepted argument names and their intrinsic
	// ranks. Binding a program item validates its named arguments against
	// exactly this list.
	ArgSpecs() []ArgSpec

	// Sample returns the concrete parameter values for one grid point.
	// args holds, per declared argument name, the sub-array of intrinsic
	// shape gathered at that point.
	Sample(args map[string]*tensors.Dense[float64]) ([]float64, error)
}

// BatchSampler is an optional capability a Randomizer may implement. When
// it does, the planner gathers the arguments for a whole item grid and
// issues a single SampleBatch call instead of one Sample call per point.
// Semantics are identical: entry i of the result is the draw for grid
// point i, and draws are still independent per point.
type BatchSampler interface {
	SampleBatch(args []map[string]*tensors.Dense[float64]) ([][]float64, error)
}

// Program is an ordered sequence of circuit items sharing one shot count.
// Build it with New and the Append methods; it must not be modified once
// Plan has been called.
type Program struct {
	shots   int
	items   []*Item
	planned bool
}

// Item is one circuit task of a Program: a circuit reference plus exactly
// one of {nothing, an explicit parameter-value array, a randomizer with
// named argument arrays and an optional requested shape}.
type Item struct {
	circuit    Circuit
	args       *tensors.Dense[float64]
	randomizer Randomizer
	namedArgs  map[string]*tensors.Dense[float64]
	argSpecs   []ArgSpec

	implicit  shapes.Shape
	extrinsic shapes.Shape
}

// Circuit returns the item's circuit reference (the template, for a
// randomized item).
func (it *Item) Circuit() Circuit { return it.circuit }

// IsRandomized reports whether the item draws its parameters from a
// randomizer.
func (it *Item) IsRandomized() bool { return it.randomizer != nil }

// ImplicitShape is the extrinsic shape the item's input arrays broadcast
// to, before any requested shape is applied.
func (it *Item) ImplicitShape() shapes.Shape { return it.implicit }

// ExtrinsicShape is the item's final sweep grid shape: the implicit shape,
// or the resolved requested shape for a randomized item that set one.
func (it *Item) ExtrinsicShape() shapes.Shape { return it.extrinsic }

// New creates an empty Program. Every flattened execution of every item
// will carry the given full shot count; shots are never split across grid
// points.
func New(shots int) (*Program, error) {
	if shots <= 0 {
		return nil, errors.Errorf("sweep.New: shots must be positive, got %d", shots)
	}
	return &Program{shots: shots}, nil
}

// Shots is the program-wide per-execution shot count.
func (p *Program) Shots() int { return p.shots }

// Items returns the program's items in append order. The slice is shared;
// don't modify it.
func (p *Program) Items() []*Item { return p.items }

func (p *Program) append(it *Item) (*Item, error) {
	if p.planned {
		return nil, errors.Errorf("sweep: program is immutable once planning has begun")
	}
	p.items = append(p.items, it)
	return it, nil
}

// AppendCircuitItem adds one circuit task. args may be nil for a static
// circuit (the circuit must then declare zero parameters). If given, the
// rightmost axis of args binds the circuit's parameters and must match its
// declared count (ErrParameterCountMismatch otherwise); the leading axes
// become the item's extrinsic sweep shape.
func (p *Program) AppendCircuitItem(circuit Circuit, args *tensors.Dense[float64]) (*Item, error) {
	it := &Item{circuit: circuit}
	if args == nil {
		if n := circuit.NumParams(); n != 0 {
			return nil, errors.Wrapf(ErrParameterCountMismatch,
				"circuit declares %d parameters but no argument array was given", n)
		}
		it.implicit = shapes.Scalar()
		it.extrinsic = shapes.Scalar()
		return p.append(it)
	}
	extrinsic, intrinsic, err := shapes.Split(args.Shape(), 1)
	if err != nil {
		return nil, errors.WithMessagef(err, "argument array of shape %s needs at least the parameters axis", args.Shape())
	}
	if got, want := intrinsic.Dim(0), circuit.NumParams(); got != want {
		return nil, errors.Wrapf(ErrParameterCountMismatch,
			"argument array of shape %s binds %d parameters, circuit declares %d", args.Shape(), got, want)
	}
	it.args = args
	it.implicit = extrinsic
	it.extrinsic = extrinsic
	return p.append(it)
}

// AppendRandomizedItem adds one randomized circuit task. namedArgs must
// bind every argument the randomizer declares, and nothing else. The
// item's implicit extrinsic shape is the broadcast of all arguments'
// extrinsic parts; requested, if given (at most one), is resolved against
// it per shapes.ResolveRequested, adding independent-randomization axes.
func (p *Program) AppendRandomizedItem(template Circuit, randomizer Randomizer,
	namedArgs map[string]*tensors.Dense[float64], requested ...shapes.Shape) (*Item, error) {
	if len(requested) > 1 {
		return nil, errors.Errorf("sweep: at most one requested shape may be given, got %d", len(requested))
	}
	specs := slices.Clone(randomizer.ArgSpecs())
	bound := make(map[string]*tensors.Dense[float64], len(specs))
	extrinsics := make([]shapes.Shape, 0, len(specs))
	for _, spec := range specs {
		arg, found := namedArgs[spec.Name]
		if !found {
			return nil, errors.Errorf("sweep: randomizer argument %q was not bound", spec.Name)
		}
		extrinsic, _, err := shapes.Split(arg.Shape(), spec.IntrinsicRank)
		if err != nil {
			return nil, errors.WithMessagef(err, "argument %q of shape %s declares intrinsic rank %d",
				spec.Name, arg.Shape(), spec.IntrinsicRank)
		}
		bound[spec.Name] = arg
		extrinsics = append(extrinsics, extrinsic)
	}
	for name := range namedArgs {
		if _, found := bound[name]; !found {
			return nil, errors.Errorf("sweep: argument %q is not declared by the randomizer", name)
		}
	}
	implicit, err := shapes.Broadcast(extrinsics...)
	if err != nil {
		return nil, errors.WithMessagef(err, "combining the extrinsic shapes of the randomizer arguments")
	}
	final := implicit
	if len(requested) == 1 {
		final, err = shapes.ResolveRequested(implicit, requested[0])
		if err != nil {
			return nil, err
		}
	}
	it := &Item{
		circuit:    template,
		randomizer: randomizer,
		namedArgs:  bound,
		argSpecs:   specs,
		implicit:   implicit,
		extrinsic:  final,
	}
	return p.append(it)
}
