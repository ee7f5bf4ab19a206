package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/microseq/bacflow/config"
)

// Stage names. The underlying tools are external black boxes; the
// graph only knows their inputs, outputs and resource budgets.
const (
	StageTrim       = "trim"
	StageTrimLong   = "trim_long"
	StageTaxonomy   = "taxonomy"
	StageAssembly   = "assembly"
	StageAsmStats   = "asm_stats"
	StageAnnotation = "annotation"
	StageAMRFinder  = "amrfinder"
	StageMLST       = "mlst"
	StageResFinder  = "resfinder"
	StageSetup      = "setup"
)

// Phases of graph construction. The gate's certified-sample set is
// unknown until the trimming stage has run, so gated stages are
// enumerated late, in a second phase.
const (
	PhaseInitial = "initial"
	PhaseGated   = "gated"
)

// Node is one unit of work: a (sample, stage) pair, or a run-wide
// stage when Sample is empty. Inputs and outputs are keyed by port
// name; the command is a shell pattern referencing ports as {i:port}
// and {o:port}, which the runner resolves. An empty-input guard wraps
// guarded commands so degenerate upstream artifacts produce empty
// placeholder outputs instead of a failure.
type Node struct {
	Stage   string
	Sample  string
	Command string
	Inputs  map[string]string
	Outputs map[string]string
	Res     config.ResourceSpec
	Guarded bool
}

// Name identifies the node uniquely within a graph.
func (n Node) Name() string {
	if n.Sample == "" {
		return n.Stage
	}
	return n.Stage + "_" + n.Sample
}

// Graph is a declarative dependency graph over nodes. Edges are
// implicit: a node depends on every node producing one of its input
// paths; inputs no node produces are external preconditions.
type Graph struct {
	Phase string
	Nodes []Node
}

// Producer returns the node and port producing a path, if any.
func (g *Graph) Producer(path string) (Node, string, bool) {
	for _, n := range g.Nodes {
		for port, out := range n.Outputs {
			if out == path {
				return n, port, true
			}
		}
	}
	return Node{}, "", false
}

// Plan renders a human-readable task listing for dry runs.
func (g *Graph) Plan() string {
	var b strings.Builder
	fmt.Fprintf(&b, "phase %s: %d tasks\n", g.Phase, len(g.Nodes))
	names := make([]string, 0, len(g.Nodes))
	byName := map[string]Node{}
	for _, n := range g.Nodes {
		names = append(names, n.Name())
		byName[n.Name()] = n
	}
	sort.Strings(names)
	for _, name := range names {
		n := byName[name]
		fmt.Fprintf(&b, "  %-28s threads=%d mem_mb=%d walltime=%s\n", name, n.Res.Threads, n.Res.MemMB, n.Res.Walltime)
		for port, p := range n.Outputs {
			fmt.Fprintf(&b, "      out %s: %s\n", port, p)
		}
	}
	return b.String()
}

// guarded wraps a command so that a degenerate (empty or missing)
// input on the guard port short-circuits into writing empty outputs
// and exiting cleanly. Aggregation then never has to special-case a
// stage that could not run.
func guarded(cmd, guardPort string, outPorts []string) string {
	touches := make([]string, len(outPorts))
	for i, p := range outPorts {
		touches[i] = "touch {o:" + p + "}"
	}
	return fmt.Sprintf("if [ ! -s {i:%s} ]; then %s; else %s; fi", guardPort, strings.Join(touches, " && "), cmd)
}
