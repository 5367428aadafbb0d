package sweep

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/qsweep/qsweep/types/shapes"
	"github.com/qsweep/qsweep/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanExplicitSweep(t *testing.T) {
	// One item, 3 declared parameters, argument array (10, 3): ten
	// executions, each carrying the row at its grid position.
	circuit := testCircuit{params: 3, registers: []Register{{Name: "r", Bits: 3}}}
	values := make([]float64, 10*3)
	for ii := range values {
		values[ii] = float64(ii)
	}
	program, err := New(1024)
	require.NoError(t, err)
	_, err = program.AppendCircuitItem(circuit, tensors.FromFlat(values, 10, 3))
	require.NoError(t, err)

	plan, err := program.Plan()
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	ip := plan.Items[0]
	require.Equal(t, shapes.Make(10), ip.Extrinsic)
	require.Len(t, ip.Units, 10)
	require.Equal(t, 10, plan.NumExecutions())
	for position, unit := range ip.Units {
		require.Equal(t, position, unit.Position)
		require.Equal(t, 0, unit.Item)
		require.Equal(t, 1024, unit.Shots)
		require.Equal(t, []float64{float64(3 * position), float64(3*position + 1), float64(3*position + 2)}, unit.Params)
	}
}

func TestPlanBroadcastGather(t *testing.T) {
	// Extrinsic shapes (4, 1) and (3) broadcast to (4, 3): 12 executions,
	// and the value bound at grid point (i, j) must come from a[i] and
	// b[j], with a's size-1 axis pinned to 0.
	template := testCircuit{params: 1, registers: []Register{{Name: "r", Bits: 1}}}
	randomizer := &pureRandomizer{
		specs:  []ArgSpec{{Name: "a", IntrinsicRank: 0}, {Name: "b", IntrinsicRank: 0}},
		params: 1,
	}
	a := tensors.FromFlat([]float64{1, 2, 3, 4}, 4, 1)
	b := tensors.FromFlat([]float64{10, 20, 30}, 3)

	program, err := New(512)
	require.NoError(t, err)
	_, err = program.AppendRandomizedItem(template, randomizer,
		map[string]*tensors.Dense[float64]{"a": a, "b": b})
	require.NoError(t, err)

	plan, err := program.Plan()
	require.NoError(t, err)
	ip := plan.Items[0]
	require.Equal(t, shapes.Make(4, 3), ip.Extrinsic)
	require.Len(t, ip.Units, 12)
	require.Equal(t, 12, randomizer.calls)

	position := 0
	for gridIdx := range ip.Extrinsic.Iter() {
		unit := ip.Units[position]
		require.Equal(t, position, unit.Position)
		require.Equal(t, 512, unit.Shots)
		wantTotal := a.Value(gridIdx[0], 0) + b.Value(gridIdx[1])
		require.Equal(t, []float64{1000 * wantTotal}, unit.Params)
		position++
	}
}

func TestPlanRequestedShape(t *testing.T) {
	template := testCircuit{params: 1, registers: []Register{{Name: "r", Bits: 3}}}
	args := map[string]*tensors.Dense[float64]{
		"base": tensors.FromFlat([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 10),
	}
	specs := []ArgSpec{{Name: "base", IntrinsicRank: 0}}

	// Requested (2, 14, 10) over implicit (10): 28 independent
	// randomizations for each of the 10 base configurations.
	program, err := New(1024)
	require.NoError(t, err)
	counting := &countingRandomizer{specs: specs, params: 1}
	_, err = program.AppendRandomizedItem(template, counting, args, shapes.Make(2, 14, 10))
	require.NoError(t, err)

	plan, err := program.Plan()
	require.NoError(t, err)
	ip := plan.Items[0]
	require.Equal(t, shapes.Make(2, 14, 10), ip.Extrinsic)
	require.Len(t, ip.Units, 2*14*10)
	// One call per grid point, even though the base configuration repeats
	// 28 times: randomizations are never shared or cached.
	require.Equal(t, 2*14*10, counting.calls)

	// Omitting the requested shape plans one randomization per
	// configuration.
	program, err = New(1024)
	require.NoError(t, err)
	counting = &countingRandomizer{specs: specs, params: 1}
	_, err = program.AppendRandomizedItem(template, counting, args)
	require.NoError(t, err)
	plan, err = program.Plan()
	require.NoError(t, err)
	require.Equal(t, shapes.Make(10), plan.Items[0].Extrinsic)
	require.Len(t, plan.Items[0].Units, 10)
	require.Equal(t, 10, counting.calls)
}

// countingRandomizer tags each draw with its call number: calls with
// identical arguments still produce distinct draws, which pins down that
// the planner never caches.
type countingRandomizer struct {
	specs  []ArgSpec
	params int
	calls  int
}

func (r *countingRandomizer) ArgSpecs() []ArgSpec { return r.specs }

func (r *countingRandomizer) Sample(args map[string]*tensors.Dense[float64]) ([]float64, error) {
	r.calls++
	draw := make([]float64, r.params)
	for ii := range draw {
		draw[ii] = float64(r.calls)
	}
	return draw, nil
}

func TestPlanIdempotence(t *testing.T) {
	build := func() *Program {
		program, err := New(256)
		require.NoError(t, err)
		circuit := testCircuit{params: 2, registers: []Register{{Name: "r", Bits: 2}}}
		_, err = program.AppendCircuitItem(circuit, tensors.FromFlat([]float64{1, 2, 3, 4, 5, 6}, 3, 2))
		require.NoError(t, err)
		randomizer := &pureRandomizer{
			specs:  []ArgSpec{{Name: "a", IntrinsicRank: 1}},
			params: 2,
		}
		_, err = program.AppendRandomizedItem(circuit, randomizer,
			map[string]*tensors.Dense[float64]{"a": tensors.FromFlat([]float64{1, 2, 3, 4}, 2, 2)},
			shapes.Make(3, 2))
		require.NoError(t, err)
		return program
	}

	plan1, err := build().Plan()
	require.NoError(t, err)
	plan2, err := build().Plan()
	require.NoError(t, err)
	require.Equal(t, plan1.NumExecutions(), plan2.NumExecutions())
	units1, units2 := plan1.Units(), plan2.Units()
	for ii := range units1 {
		assert.Equal(t, units1[ii].Item, units2[ii].Item)
		assert.Equal(t, units1[ii].Position, units2[ii].Position)
		assert.Equal(t, units1[ii].Shots, units2[ii].Shots)
		assert.Equal(t, units1[ii].Params, units2[ii].Params)
	}

	// Re-planning the very same program also reproduces the plan: the
	// randomizer is pure and the program wasn't mutated.
	program := build()
	planA, err := program.Plan()
	require.NoError(t, err)
	planB, err := program.Plan()
	require.NoError(t, err)
	require.Equal(t, planA.Units()[5].Params, planB.Units()[5].Params)
}

func TestPlanBatchSampler(t *testing.T) {
	template := testCircuit{params: 1, registers: []Register{{Name: "r", Bits: 1}}}
	randomizer := &batchRandomizer{specs: []ArgSpec{{Name: "a", IntrinsicRank: 0}}}
	program, err := New(32)
	require.NoError(t, err)
	_, err = program.AppendRandomizedItem(template, randomizer,
		map[string]*tensors.Dense[float64]{"a": tensors.FromFlat([]float64{7, 8, 9}, 3)})
	require.NoError(t, err)

	plan, err := program.Plan()
	require.NoError(t, err)
	require.Equal(t, 1, randomizer.batchCalls)
	units := plan.Items[0].Units
	require.Len(t, units, 3)
	for position, unit := range units {
		require.Equal(t, []float64{float64(7+position) * 2}, unit.Params)
	}
}

// batchRandomizer exercises the vectorized capability path: one
// SampleBatch call covering the whole grid.
type batchRandomizer struct {
	specs      []ArgSpec
	batchCalls int
}

func (r *batchRandomizer) ArgSpecs() []ArgSpec { return r.specs }

func (r *batchRandomizer) Sample(map[string]*tensors.Dense[float64]) ([]float64, error) {
	return nil, errors.New("vectorized randomizer: Sample must not be called")
}

func (r *batchRandomizer) SampleBatch(args []map[string]*tensors.Dense[float64]) ([][]float64, error) {
	r.batchCalls++
	draws := make([][]float64, len(args))
	for ii, pointArgs := range args {
		draws[ii] = []float64{pointArgs["a"].Value() * 2}
	}
	return draws, nil
}

func TestPlanTooLarge(t *testing.T) {
	circuit := testCircuit{params: 1, registers: []Register{{Name: "r", Bits: 1}}}
	program, err := New(1000)
	require.NoError(t, err)
	_, err = program.AppendCircuitItem(circuit, tensors.New[float64](shapes.Make(100, 1)))
	require.NoError(t, err)

	_, err = program.Plan(Options{MaxExecutions: 99})
	require.True(t, errors.Is(err, ErrPlanTooLarge))

	_, err = program.Plan(Options{MaxTotalShots: 99_999})
	require.True(t, errors.Is(err, ErrPlanTooLarge))

	plan, err := program.Plan(Options{MaxExecutions: 100, MaxTotalShots: 100_000})
	require.NoError(t, err)
	require.Equal(t, 100, plan.NumExecutions())
}

func TestPlanDrawLengthMismatch(t *testing.T) {
	template := testCircuit{params: 3, registers: []Register{{Name: "r", Bits: 3}}}
	// params: 2 makes every draw two values short of the template.
	randomizer := &pureRandomizer{specs: []ArgSpec{{Name: "a", IntrinsicRank: 0}}, params: 2}
	program, err := New(8)
	require.NoError(t, err)
	_, err = program.AppendRandomizedItem(template, randomizer,
		map[string]*tensors.Dense[float64]{"a": tensors.FromFlat([]float64{1, 2}, 2)})
	require.NoError(t, err)

	_, err = program.Plan()
	require.True(t, errors.Is(err, ErrParameterCountMismatch))
}

func TestPlanEmptyGrid(t *testing.T) {
	circuit := testCircuit{params: 2, registers: []Register{{Name: "r", Bits: 1}}}
	program, err := New(16)
	require.NoError(t, err)
	_, err = program.AppendCircuitItem(circuit, tensors.New[float64](shapes.Make(0, 2)))
	require.NoError(t, err)

	plan, err := program.Plan()
	require.NoError(t, err)
	require.Empty(t, plan.Items[0].Units)
	require.Equal(t, 0, plan.NumExecutions())
}
