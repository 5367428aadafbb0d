package main

import (
	"math/rand"

	"github.com/gomlx/exceptions"
	"github.com/qsweep/qsweep/sweep"
	"github.com/qsweep/qsweep/types/tensors"
)

// demoCircuit is a stand-in circuit reference: this tool only exercises
// the planning and assembly machinery, which never looks inside a circuit.
type demoCircuit struct {
	params    int
	registers []sweep.Register
}

func (c demoCircuit) NumParams() int { return c.params }
func (c demoCircuit) Registers() []sweep.Register { return c.registers }

// shiftRandomizer draws parameters around the per-point "means" argument.
// One fixed-seed stream feeds all draws, so every grid point (including
// the independent-randomization axis) gets its own values while runs stay
// reproducible.
type shiftRandomizer struct {
	params int
	rng    *rand.Rand
}

func newShiftRandomizer(params int, seed int64) *shiftRandomizer {
	return &shiftRandomizer{params: params, rng: rand.New(rand.NewSource(seed))}
}

func (r *shiftRandomizer) ArgSpecs() []sweep.ArgSpec {
	return []sweep.ArgSpec{{Name: "means", IntrinsicRank: 1}}
}

func (r *shiftRandomizer) Sample(args map[string]*tensors.Dense[float64]) ([]float64, error) {
	means := args["means"]
	if means.Size() != r.params {
		exceptions.Panicf("shiftRandomizer: means has %d values, expected %d", means.Size(), r.params)
	}
	draw := make([]float64, r.params)
	for ii, mean := range means.Flat() {
		draw[ii] = mean + r.rng.NormFloat64()
	}
	return draw, nil
}
