package sweep

import (
	"github.com/pkg/errors"
)

// Sentinel errors of the planning and assembly contract. Shape-algebra
// violations carry the sentinels of types/shapes instead
// (shapes.ErrIncompatible, shapes.ErrTooShort,
// shapes.ErrNotBroadcastableFromRequested). Match with errors.Is.
var (
	// ErrParameterCountMismatch: an argument array's parameters axis, or a
	// randomizer draw, disagrees with the circuit's declared parameter
	// count.
	ErrParameterCountMismatch = errors.New("parameter count mismatch with the circuit's declaration")

	// ErrPlanTooLarge: the flattened plan exceeds a configured ceiling on
	// executions or total shots.
	ErrPlanTooLarge = errors.New("plan exceeds the configured execution ceiling")

	// ErrChannelSetMismatch: executions of one item disagree on the set of
	// result channel names, or on a channel's per-execution shape.
	ErrChannelSetMismatch = errors.New("executions of one item disagree on their result channels")

	// ErrIncompleteExecution: the raw results don't cover the planned grid
	// one-to-one, or their positional correlation is broken.
	ErrIncompleteExecution = errors.New("raw results do not match the planned executions one-to-one")
)
