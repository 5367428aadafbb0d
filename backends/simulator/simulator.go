// Package simulator implements a deterministic local backend: readouts are
// pseudo-random bits derived from a seed and each unit's identity, so any
// plan runs to the same results on every machine. It exists for tests and
// for trying out sweep programs without a quantum service behind them.
//
// Register name: "sim". Config string is a comma-separated list of
// "seed=<n>", "parallelism=<n>" and "corrections"; the latter makes the
// simulator emit a derived per-shot correction channel
// "<register>.corrections" alongside every readout channel, mirroring what
// randomized-compiling services attach to their results.
//
// Units are simulated on up to parallelism goroutines. Each unit's bits
// depend only on its own identity, so the fan-out never changes results,
// and the returned slice is in submission order regardless.
package simulator

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/qsweep/qsweep/backends"
	"github.com/qsweep/qsweep/sweep"
	"github.com/qsweep/qsweep/types/tensors"
	"k8s.io/klog/v2"
)

// Name of the backend in the registry.
const Name = "sim"

func init() {
	backends.Register(Name, func(config string) (backends.Backend, error) {
		return NewWithConfig(config)
	})
}

// Simulator is a deterministic in-process Backend.
type Simulator struct {
	seed        int64
	parallelism int
	corrections bool
}

// New returns a Simulator with the given seed, without corrections,
// simulating units sequentially.
func New(seed int64) *Simulator {
	return &Simulator{seed: seed, parallelism: 1}
}

// NewWithConfig parses the config string documented in the package doc.
func NewWithConfig(config string) (*Simulator, error) {
	sim := New(0)
	if config == "" {
		return sim, nil
	}
	for _, part := range strings.Split(config, ",") {
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "seed":
			if !hasValue {
				return nil, errors.Errorf("simulator: config %q: seed needs a value, e.g. seed=42", config)
			}
			seed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "simulator: config %q: parsing seed", config)
			}
			sim.seed = seed
		case "parallelism":
			if !hasValue {
				return nil, errors.Errorf("simulator: config %q: parallelism needs a value, e.g. parallelism=8", config)
			}
			parallelism, err := strconv.Atoi(value)
			if err != nil || parallelism < 1 {
				return nil, errors.Errorf("simulator: config %q: parallelism must be a positive integer, got %q", config, value)
			}
			sim.parallelism = parallelism
		case "corrections":
			sim.corrections = true
		default:
			return nil, errors.Errorf("simulator: unknown config key %q in %q", key, config)
		}
	}
	return sim, nil
}

// WithCorrections makes the simulator emit a "<register>.corrections"
// channel per readout channel. It returns the simulator for chaining.
func (s *Simulator) WithCorrections() *Simulator {
	s.corrections = true
	return s
}

// WithParallelism sets how many units are simulated concurrently. It
// returns the simulator for chaining.
func (s *Simulator) WithParallelism(parallelism int) *Simulator {
	if parallelism < 1 {
		exceptions.Panicf("simulator: parallelism must be positive, got %d", parallelism)
	}
	s.parallelism = parallelism
	return s
}

// Name implements backends.Backend.
func (s *Simulator) Name() string { return Name }

// Description implements backends.Backend.
func (s *Simulator) Description() string {
	return "deterministic local simulator (seeded pseudo-random readouts)"
}

// Run implements backends.Backend. Results are returned in submission
// order; each unit's bits depend only on the simulator seed and the
// unit's item, position, parameters and register names, never on the
// other units in the batch.
func (s *Simulator) Run(ctx context.Context, units []*sweep.ExecutionUnit) ([]backends.UnitResult, error) {
	jobID := uuid.NewString()
	klog.V(1).Infof("simulator: job %s running %d units on %d workers", jobID, len(units), s.parallelism)
	results := make([]backends.UnitResult, len(units))

	var wg sync.WaitGroup
	slots := make(chan struct{}, s.parallelism)
	for ii, unit := range units {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, errors.Wrapf(err, "simulator: job %s interrupted at unit %d of %d",
				jobID, ii, len(units))
		}
		slots <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			results[ii] = s.runUnit(unit)
		}()
	}
	wg.Wait()
	return results, nil
}

func (s *Simulator) runUnit(unit *sweep.ExecutionUnit) backends.UnitResult {
	channels := make(sweep.RawResult)
	for _, reg := range unit.Circuit.Registers() {
		channels[reg.Name] = s.readout(unit, reg.Name, unit.Shots, reg.Bits)
		if s.corrections {
			channels[reg.Name+".corrections"] = s.readout(unit, reg.Name+".corrections", unit.Shots, reg.Bits)
		}
	}
	return backends.UnitResult{
		Item:     unit.Item,
		Position: unit.Position,
		Channels: channels,
	}
}

// readout generates the (shots, bits) array for one channel of one unit.
func (s *Simulator) readout(unit *sweep.ExecutionUnit, channel string, shots, bits int) *tensors.Dense[uint8] {
	rng := rand.New(rand.NewSource(s.unitSeed(unit, channel)))
	flat := make([]uint8, shots*bits)
	for ii := range flat {
		flat[ii] = uint8(rng.Intn(2))
	}
	return tensors.FromFlat(flat, shots, bits)
}

// unitSeed derives a stable per-(unit, channel) seed. Parameters take part
// so sweeps over different values produce different readouts. FNV keeps it
// reproducible across processes and machines.
func (s *Simulator) unitSeed(unit *sweep.ExecutionUnit, channel string) int64 {
	h := fnv.New64a()
	_, _ = io.WriteString(h, channel)
	_ = binary.Write(h, binary.LittleEndian, int64(unit.Item))
	_ = binary.Write(h, binary.LittleEndian, int64(unit.Position))
	for _, param := range unit.Params {
		_ = binary.Write(h, binary.LittleEndian, math.Float64bits(param))
	}
	return s.seed ^ int64(h.Sum64())
}
