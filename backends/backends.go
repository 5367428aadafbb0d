// Package backends defines the interface a job-submission system needs to
// implement to run a planned sweep, and a registry of implementations.
//
// The engine core (package sweep) only requires a stable correlation
// between submitted execution units and returned raw results: every
// UnitResult carries the item index and row-major position of its
// originating unit, and Collate re-establishes planner order before the
// results are handed to sweep.Assemble. Scheduling, batching, retries and
// timeouts are entirely the backend's business.
package backends

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/qsweep/qsweep/sweep"
)

// UnitResult is the raw output of one executed unit, tagged with the
// originating unit's item index and grid position so out-of-order
// delivery can be re-sorted.
type UnitResult struct {
	Item     int
	Position int
	Channels sweep.RawResult
}

// Backend is the API a job-submission layer needs to implement.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "sim" for the
	// local simulator.
	Name() string

	// Description is a longer description of the Backend that can be used
	// to pretty-print.
	Description() string

	// Run executes the given units and returns one UnitResult per unit, in
	// any order. Units carry their own shot counts. Run must either cover
	// every unit or return an error; partial result sets are a contract
	// violation the collation step rejects.
	Run(ctx context.Context, units []*sweep.ExecutionUnit) ([]UnitResult, error)
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a constructor that takes as
// input a configuration string that is passed along to the backend
// constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the backend configuration to use if none is given and
// the environment doesn't specify one.
//
// The format of config is "<backend_name>" or "<backend_name>:<backend_configuration>",
// where "<backend_configuration>" is backend specific.
var DefaultConfig string

// QSWEEP_BACKEND is the environment variable with the default backend
// configuration to use. Same format as DefaultConfig.
const QSWEEP_BACKEND = "QSWEEP_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment QSWEEP_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() (Backend, error) {
	if config, found := os.LookupEnv(QSWEEP_BACKEND); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	if firstRegistered == "" {
		exceptions.Panicf("backends.New: no backend registered; import a backend implementation package (e.g. backends/simulator)")
	}
	return NewWithConfig(firstRegistered)
}

// NewWithConfig creates a Backend from a "<name>" or "<name>:<config>"
// string. The name must have been registered.
func NewWithConfig(config string) (Backend, error) {
	name, backendConfig, _ := strings.Cut(config, ":")
	constructor, found := registeredConstructors[name]
	if !found {
		names := make([]string, 0, len(registeredConstructors))
		for registered := range registeredConstructors {
			names = append(names, registered)
		}
		sort.Strings(names)
		return nil, errors.Errorf("backends.NewWithConfig: backend %q is not registered (registered: %s)",
			name, strings.Join(names, ", "))
	}
	return constructor(backendConfig)
}

// Collate re-establishes planner order on a flat batch of unit results and
// splits them per item, ready for sweep.Plan.AssembleAll. It accepts
// results in any order but requires exactly one result per planned unit;
// anything else wraps sweep.ErrIncompleteExecution.
func Collate(plan *sweep.Plan, results []UnitResult) ([][]sweep.RawResult, error) {
	if total := plan.NumExecutions(); len(results) != total {
		return nil, errors.Wrapf(sweep.ErrIncompleteExecution,
			"%d unit results for a plan of %d executions", len(results), total)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Item != results[j].Item {
			return results[i].Item < results[j].Item
		}
		return results[i].Position < results[j].Position
	})
	perItem := make([][]sweep.RawResult, len(plan.Items))
	cursor := 0
	for itemIdx, ip := range plan.Items {
		n := len(ip.Units)
		perItem[itemIdx] = make([]sweep.RawResult, 0, n)
		for position := 0; position < n; position++ {
			r := results[cursor]
			if r.Item != itemIdx || r.Position != position {
				return nil, errors.Wrapf(sweep.ErrIncompleteExecution,
					"positional correlation broken: expected a result for item %d position %d, got item %d position %d",
					itemIdx, position, r.Item, r.Position)
			}
			perItem[itemIdx] = append(perItem[itemIdx], r.Channels)
			cursor++
		}
	}
	return perItem, nil
}
