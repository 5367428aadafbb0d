package backends_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/qsweep/qsweep/backends"
	"github.com/qsweep/qsweep/sweep"
	"github.com/qsweep/qsweep/types/shapes"
	"github.com/qsweep/qsweep/types/tensors"
	"github.com/stretchr/testify/require"
)

type testCircuit struct {
	params    int
	registers []sweep.Register
}

func (c testCircuit) NumParams() int { return c.params }
func (c testCircuit) Registers() []sweep.Register { return c.registers }

func planTwoItems(t *testing.T) *sweep.Plan {
	t.Helper()
	circuit := testCircuit{params: 1, registers: []sweep.Register{{Name: "r", Bits: 1}}}
	program, err := sweep.New(4)
	require.NoError(t, err)
	_, err = program.AppendCircuitItem(circuit, tensors.FromFlat([]float64{1, 2, 3}, 3, 1))
	require.NoError(t, err)
	_, err = program.AppendCircuitItem(circuit, tensors.FromFlat([]float64{4, 5}, 2, 1))
	require.NoError(t, err)
	plan, err := program.Plan()
	require.NoError(t, err)
	return plan
}

func resultFor(item, position int) backends.UnitResult {
	flat := make([]uint8, 4)
	for ii := range flat {
		flat[ii] = uint8(10*item + position)
	}
	return backends.UnitResult{
		Item:     item,
		Position: position,
		Channels: sweep.RawResult{"r": tensors.FromFlat(flat, 4, 1)},
	}
}

func TestCollate(t *testing.T) {
	plan := planTwoItems(t)

	// Out-of-order delivery is re-sorted by (item, position).
	results := []backends.UnitResult{
		resultFor(1, 1), resultFor(0, 2), resultFor(0, 0),
		resultFor(1, 0), resultFor(0, 1),
	}
	perItem, err := backends.Collate(plan, results)
	require.NoError(t, err)
	require.Len(t, perItem, 2)
	require.Len(t, perItem[0], 3)
	require.Len(t, perItem[1], 2)
	require.Equal(t, uint8(2), perItem[0][2]["r"].Value(0, 0))
	require.Equal(t, uint8(11), perItem[1][1]["r"].Value(0, 0))

	// Collated results assemble cleanly.
	assembled, err := plan.AssembleAll(perItem)
	require.NoError(t, err)
	require.Equal(t, shapes.Make(3, 4, 1), assembled[0]["r"].Shape())
}

func TestCollateIncomplete(t *testing.T) {
	plan := planTwoItems(t)

	_, err := backends.Collate(plan, []backends.UnitResult{resultFor(0, 0)})
	require.True(t, errors.Is(err, sweep.ErrIncompleteExecution))

	// Right count, broken correlation: a duplicated position shadows a
	// missing one.
	results := []backends.UnitResult{
		resultFor(0, 0), resultFor(0, 1), resultFor(0, 1),
		resultFor(1, 0), resultFor(1, 1),
	}
	_, err = backends.Collate(plan, results)
	require.True(t, errors.Is(err, sweep.ErrIncompleteExecution))

	// A result for an unplanned unit.
	results = []backends.UnitResult{
		resultFor(0, 0), resultFor(0, 1), resultFor(0, 2),
		resultFor(1, 0), resultFor(2, 0),
	}
	_, err = backends.Collate(plan, results)
	require.True(t, errors.Is(err, sweep.ErrIncompleteExecution))
}

func TestNewWithConfigUnknown(t *testing.T) {
	_, err := backends.NewWithConfig("no-such-backend")
	require.ErrorContains(t, err, "no-such-backend")
}
