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

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/qsweep/qsweep/types/shapes"
	"github.com/qsweep/qsweep/types/tensors"
	"k8s.io/klog/v2"
)

// Default ceilings applied by Plan when Options leaves them zero. They
// guard against a mistyped sweep axis ballooning into millions of
// submissions, not against any physical backend limit.
const (
	DefaultMaxExecutions = 100_000
	DefaultMaxTotalShots = 1_000_000_000
)

// Options configures planning. Zero fields take the package defaults.
type Options struct {
	// MaxExecutions caps the total number of flattened executions across
	// all items of the program.
	MaxExecutions int

	// MaxTotalShots caps executions times the program shot count.
	MaxTotalShots int
}

// ExecutionUnit is one fully bound execution: a circuit, its concrete
// parameter values, the program's shot count, and the unit's position in
// its item's flattened grid. Position is row-major over the item's
// extrinsic shape and is what correlates raw results back to the grid.
type ExecutionUnit struct {
	Circuit  Circuit
	Params   []float64
	Shots    int
	Item     int
	Position int
}

// ItemPlan is the flattened grid of one program item: its final extrinsic
// shape and the units enumerated in row-major order over it.
type ItemPlan struct {
	Item      *Item
	Extrinsic shapes.Shape
	Units     []*ExecutionUnit
}

// Plan is the flattened form of a whole program, one ItemPlan per item in
// program order.
type Plan struct {
	Shots int
	Items []*ItemPlan
}

// Units returns all units of the plan in submission order: item by item,
// each item's grid in row-major order.
func (p *Plan) Units() []*ExecutionUnit {
	var units []*ExecutionUnit
	for _, ip := range p.Items {
		units = append(units, ip.Units...)
	}
	return units
}

// NumExecutions is the total number of flattened executions in the plan.
func (p *Plan) NumExecutions() (total int) {
	for _, ip := range p.Items {
		total += len(ip.Units)
	}
	return
}

// Plan expands the program into its flattened execution units. For each
// item it enumerates every multi-index of the item's extrinsic shape in
// row-major order (leftmost axis slowest), binds the argument values at
// that position under broadcasting indexing, draws parameters from the
// randomizer where the item has one (exactly one draw per grid point,
// never shared between points), and attaches the program's shot count.
//
// The emitted order is the canonical linearization later relied upon by
// Assemble: reshaping the flat unit list back into the extrinsic shape
// recovers the grid with no scatter step.
//
// Ceiling violations return ErrPlanTooLarge before any randomizer is
// invoked. Planning does not mutate the program, but marks it immutable.
func (p *Program) Plan(options ...Options) (*Plan, error) {
	if len(options) > 1 {
		return nil, errors.Errorf("sweep: at most one Options may be given, got %d", len(options))
	}
	var opts Options
	if len(options) == 1 {
		opts = options[0]
	}
	if opts.MaxExecutions == 0 {
		opts.MaxExecutions = DefaultMaxExecutions
	}
	if opts.MaxTotalShots == 0 {
		opts.MaxTotalShots = DefaultMaxTotalShots
	}
	p.planned = true

	totalExecutions := 0
	for _, it := range p.items {
		totalExecutions += it.extrinsic.Size()
	}
	if totalExecutions > opts.MaxExecutions {
		return nil, errors.Wrapf(ErrPlanTooLarge, "%s flattened executions, ceiling is %s",
			humanize.Comma(int64(totalExecutions)), humanize.Comma(int64(opts.MaxExecutions)))
	}
	if totalShots := totalExecutions * p.shots; totalShots > opts.MaxTotalShots {
		return nil, errors.Wrapf(ErrPlanTooLarge, "%s total shots (%s executions x %s shots), ceiling is %s",
			humanize.Comma(int64(totalShots)), humanize.Comma(int64(totalExecutions)),
			humanize.Comma(int64(p.shots)), humanize.Comma(int64(opts.MaxTotalShots)))
	}

	plan := &Plan{Shots: p.shots, Items: make([]*ItemPlan, 0, len(p.items))}
	for itemIdx, it := range p.items {
		ip, err := p.planItem(itemIdx, it)
		if err != nil {
			return nil, errors.WithMessagef(err, "planning item #%d", itemIdx)
		}
		plan.Items = append(plan.Items, ip)
	}
	klog.V(1).Infof("sweep: planned %d items, %d executions, %d shots each",
		len(plan.Items), plan.NumExecutions(), p.shots)
	return plan, nil
}

func (p *Program) planItem(itemIdx int, it *Item) (*ItemPlan, error) {
	grid := it.extrinsic
	ip := &ItemPlan{Item: it, Extrinsic: grid, Units: make([]*ExecutionUnit, 0, grid.Size())}
	if it.IsRandomized() {
		return ip, p.planRandomized(itemIdx, it, ip)
	}
	position := 0
	for gridIdx := range grid.Iter() {
		unit := &ExecutionUnit{
			Circuit:  it.circuit,
			Shots:    p.shots,
			Item:     itemIdx,
			Position: position,
		}
		if it.args != nil {
			unit.Params = it.args.GatherAt(gridIdx, 1).Flat()
		}
		ip.Units = append(ip.Units, unit)
		position++
	}
	return ip, nil
}

func (p *Program) planRandomized(itemIdx int, it *Item, ip *ItemPlan) error {
	grid := it.extrinsic
	// Bind the declared arguments at every grid point first. A randomized
	// axis (present in the requested shape but not backed by any argument
	// axis >1) gathers the same values at every one of its positions; the
	// draws below still differ because each point gets its own call.
	gathered := make([]map[string]*tensors.Dense[float64], 0, grid.Size())
	for gridIdx := range grid.Iter() {
		args := make(map[string]*tensors.Dense[float64], len(it.argSpecs))
		for _, spec := range it.argSpecs {
			args[spec.Name] = it.namedArgs[spec.Name].GatherAt(gridIdx, spec.IntrinsicRank)
		}
		gathered = append(gathered, args)
	}

	var draws [][]float64
	if batch, ok := it.randomizer.(BatchSampler); ok {
		var err error
		draws, err = batch.SampleBatch(gathered)
		if err != nil {
			return errors.WithMessagef(err, "batch-sampling %d grid points", len(gathered))
		}
		if len(draws) != len(gathered) {
			return errors.Errorf("batch sampler returned %d draws for %d grid points", len(draws), len(gathered))
		}
	} else {
		draws = make([][]float64, 0, len(gathered))
		for _, args := range gathered {
			draw, err := it.randomizer.Sample(args)
			if err != nil {
				return errors.WithMessagef(err, "sampling grid point %d", len(draws))
			}
			draws = append(draws, draw)
		}
	}

	want := it.circuit.NumParams()
	for position, draw := range draws {
		if len(draw) != want {
			return errors.Wrapf(ErrParameterCountMismatch,
				"randomizer draw for grid point %d has %d values, template declares %d parameters",
				position, len(draw), want)
		}
		ip.Units = append(ip.Units, &ExecutionUnit{
			Circuit:  it.circuit,
			Params:   slices.Clone(draw),
			Shots:    p.shots,
			Item:     itemIdx,
			Position: position,
		})
	}
	return nil
}
