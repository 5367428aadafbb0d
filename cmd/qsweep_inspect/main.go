// qsweep_inspect builds a demonstration sweep program, plans it and prints
// the resulting execution grid. With --run it also executes the plan on a
// configured backend (the local simulator by default) and reports the
// assembled channel shapes.
//
// Backend selection follows the QSWEEP_BACKEND environment variable or the
// --backend flag, e.g. --backend=sim:seed=42,corrections.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/qsweep/qsweep/backends"
	_ "github.com/qsweep/qsweep/backends/simulator"
	"github.com/qsweep/qsweep/sweep"
	"github.com/qsweep/qsweep/types/shapes"
	"github.com/qsweep/qsweep/types/tensors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagShots = flag.Int("shots", 1024, "Shots per flattened execution, applied uniformly to the whole program.")
	flagSweep = flag.Int("sweep", 10, "Number of sweep configurations of the explicit-parameters demo item.")
	flagRands = flag.Int("randomizations", 4, "Independent randomizations per configuration of the randomized demo item.")
	flagRun   = flag.Bool("run", false, "Run the plan on the configured backend and report assembled channels.")

	flagBackend = flag.String("backend", "",
		fmt.Sprintf("Backend configuration, \"<name>\" or \"<name>:<config>\". Defaults to $%s or the first registered backend.",
			backends.QSWEEP_BACKEND))
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %v. See 'qsweep_inspect -help'.", flag.Args())
		os.Exit(1)
	}

	program := must.M1(sweep.New(*flagShots))
	buildDemoItems(program)
	plan := must.M1(program.Plan())
	reportPlan(plan)

	if *flagRun {
		run(plan)
	}
}

// buildDemoItems appends one explicit-sweep item and one randomized item
// with an independent-randomization axis on top of its implicit shape.
func buildDemoItems(program *sweep.Program) {
	circuit := demoCircuit{params: 3, registers: []sweep.Register{{Name: "r", Bits: 3}}}

	n := *flagSweep
	angles := make([]float64, n*circuit.params)
	for ii := range angles {
		angles[ii] = 2 * math.Pi * float64(ii) / float64(len(angles))
	}
	must.M1(program.AppendCircuitItem(circuit, tensors.FromFlat(angles, n, circuit.params)))

	means := make([]float64, n*circuit.params)
	for ii := range means {
		means[ii] = float64(ii%circuit.params) - 1
	}
	must.M1(program.AppendRandomizedItem(circuit, newShiftRandomizer(circuit.params, 42),
		map[string]*tensors.Dense[float64]{
			"means": tensors.FromFlat(means, n, circuit.params),
		},
		shapes.Make(*flagRands, n)))
}

func reportPlan(plan *sweep.Plan) {
	table := newPlainTable()
	table.Headers("Item", "Kind", "Implicit", "Extrinsic", "Executions", "Shots")
	for itemIdx, ip := range plan.Items {
		kind := "explicit"
		if ip.Item.IsRandomized() {
			kind = "randomized"
		} else if ip.Item.Circuit().NumParams() == 0 {
			kind = "static"
		}
		table.Row(
			fmt.Sprintf("#%d", itemIdx), kind,
			ip.Item.ImplicitShape().String(), ip.Extrinsic.String(),
			humanize.Comma(int64(len(ip.Units))),
			humanize.Comma(int64(plan.Shots)))
	}
	fmt.Println(titleStyle.Render("Execution plan"))
	fmt.Println(table.Render())
	fmt.Printf("Total: %s executions, %s shots\n\n",
		humanize.Comma(int64(plan.NumExecutions())),
		humanize.Comma(int64(plan.NumExecutions()*plan.Shots)))
}

func run(plan *sweep.Plan) {
	var backend backends.Backend
	if *flagBackend != "" {
		backend = must.M1(backends.NewWithConfig(*flagBackend))
	} else {
		backend = must.M1(backends.New())
	}
	fmt.Printf("Backend: %s (%s)\n", backend.Name(), backend.Description())

	units := plan.Units()
	bar := progressbar.Default(int64(len(units)), "executing")
	var results []backends.UnitResult
	batch := 16
	for start := 0; start < len(units); start += batch {
		end := min(start+batch, len(units))
		results = append(results, must.M1(backend.Run(context.Background(), units[start:end]))...)
		must.M(bar.Add(end - start))
	}
	must.M(bar.Finish())

	perItem := must.M1(backends.Collate(plan, results))
	assembled := must.M1(plan.AssembleAll(perItem))

	table := newPlainTable()
	table.Headers("Item", "Channel", "Shape", "Size")
	for itemIdx, result := range assembled {
		for _, name := range sortedChannelNames(result) {
			channel := result[name]
			table.Row(
				fmt.Sprintf("#%d", itemIdx), name,
				channel.Shape().String(),
				humanize.Bytes(uint64(channel.Size())))
		}
	}
	fmt.Println(titleStyle.Render("Assembled channels"))
	fmt.Println(table.Render())
}
