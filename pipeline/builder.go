package pipeline

import (
	"fmt"

	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/registry"
)

// Builder turns the canonical sample table into task graphs. It holds
// no mutable state beyond its inputs; node construction is a pure
// function of (config, sample), so per-sample tasks are independent
// and safe to execute in parallel.
type Builder struct {
	cfg config.Config
	tbl *registry.Table
}

func NewBuilder(cfg config.Config, tbl *registry.Table) *Builder {
	return &Builder{cfg: cfg, tbl: tbl}
}

// Databases provisioned externally; the graph only depends on their
// ready markers.
var databases = []string{"kraken2", "prokka", "amrfinder", "resfinder"}

// Initial enumerates phase one: database markers and the per-sample
// read-trimming tasks. Gated stages are deliberately absent here; they
// are enumerated by Gated once the checkpoint has run (late-bound
// fan-out).
func (b *Builder) Initial() (*Graph, error) {
	g := &Graph{Phase: PhaseInitial}

	setupRes, err := b.cfg.Resource(StageSetup)
	if err != nil {
		return nil, err
	}
	for _, db := range databases {
		g.Nodes = append(g.Nodes, Node{
			Stage:   StageSetup + "_" + db,
			Command: "touch {o:ready}",
			Inputs:  map[string]string{},
			Outputs: map[string]string{"ready": DBMarker(b.cfg.OutDir, db)},
			Res:     setupRes,
		})
	}

	for _, s := range b.tbl.Samples {
		key := b.tbl.Key(s)
		if s.HasIlluminaPair() {
			n, err := b.trimNode(key, s)
			if err != nil {
				return nil, err
			}
			g.Nodes = append(g.Nodes, n)
		}
		if s.HasNanopore() {
			n, err := b.trimLongNode(key, s)
			if err != nil {
				return nil, err
			}
			g.Nodes = append(g.Nodes, n)
		}
	}
	return g, nil
}

func (b *Builder) trimNode(key string, s registry.Sample) (Node, error) {
	res, err := b.cfg.Resource(StageTrim)
	if err != nil {
		return Node{}, err
	}
	cmd := fmt.Sprintf("fastp --in1 {i:raw1} --in2 {i:raw2} --out1 {o:r1} --out2 {o:r2} --thread %d %s", res.Threads, b.cfg.Extra(StageTrim))
	return Node{
		Stage:   StageTrim,
		Sample:  key,
		Command: cmd,
		Inputs:  map[string]string{"raw1": s.IlluminaR1, "raw2": s.IlluminaR2},
		Outputs: map[string]string{
			"r1": TrimmedR1(b.cfg.OutDir, key),
			"r2": TrimmedR2(b.cfg.OutDir, key),
		},
		Res: res,
	}, nil
}

func (b *Builder) trimLongNode(key string, s registry.Sample) (Node, error) {
	res, err := b.cfg.Resource(StageTrimLong)
	if err != nil {
		return Node{}, err
	}
	cmd := fmt.Sprintf("filtlong --min_length 1000 %s {i:raw} | gzip > {o:long}", b.cfg.Extra(StageTrimLong))
	return Node{
		Stage:   StageTrimLong,
		Sample:  key,
		Command: cmd,
		Inputs:  map[string]string{"raw": s.Nanopore},
		Outputs: map[string]string{"long": TrimmedLong(b.cfg.OutDir, key)},
		Res:     res,
	}, nil
}

// Gated enumerates phase two for the certified samples only. A sample
// the gate did not certify contributes no nodes at all: its gated
// tasks are omitted from the graph, not skipped at runtime.
func (b *Builder) Gated(certified []string) (*Graph, error) {
	g := &Graph{Phase: PhaseGated}
	isCertified := map[string]bool{}
	for _, key := range certified {
		isCertified[key] = true
	}

	for _, s := range b.tbl.Samples {
		key := b.tbl.Key(s)
		if !isCertified[key] {
			continue
		}
		nodes, err := b.sampleAnalysisNodes(key, s)
		if err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, nodes...)
	}
	return g, nil
}

func (b *Builder) sampleAnalysisNodes(key string, s registry.Sample) ([]Node, error) {
	out := b.cfg.OutDir
	var nodes []Node

	add := func(n Node, err error) error {
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
		return nil
	}

	if err := add(b.taxonomyNode(key, s)); err != nil {
		return nil, err
	}
	if err := add(b.assemblyNode(key, s)); err != nil {
		return nil, err
	}

	asm := Assembly(out, key)

	if err := add(b.guardedAsmNode(StageAsmStats, key, asm,
		map[string]string{"report": AssemblyStats(out, key)},
		"quast -o $(dirname {o:report}) {i:asm} %s && mv $(dirname {o:report})/report.tsv {o:report}", "")); err != nil {
		return nil, err
	}
	if err := add(b.guardedAsmNode(StageAnnotation, key, asm,
		map[string]string{"gff": Annotation(out, key)},
		"prokka --force --prefix %[2]s --outdir $(dirname {o:gff}) %[1]s {i:asm}", key)); err != nil {
		return nil, err
	}
	if err := add(b.guardedAsmNode(StageAMRFinder, key, asm,
		map[string]string{"tsv": AMRFinderTSV(out, key)},
		"amrfinder --plus --nucleotide {i:asm} %s -o {o:tsv}", "")); err != nil {
		return nil, err
	}
	if err := add(b.guardedAsmNode(StageMLST, key, asm,
		map[string]string{"tsv": MLSTTSV(out, key)},
		"mlst %s {i:asm} > {o:tsv}", "")); err != nil {
		return nil, err
	}

	// ResFinder works from short reads; Illumina-paired samples only.
	if s.HasIlluminaPair() {
		if err := add(b.resfinderNode(key)); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// taxonomyNode runs read classification on whichever trimmed modality
// the sample has, preferring the short reads.
func (b *Builder) taxonomyNode(key string, s registry.Sample) (Node, error) {
	res, err := b.cfg.Resource(StageTaxonomy)
	if err != nil {
		return Node{}, err
	}
	out := b.cfg.OutDir
	n := Node{
		Stage:   StageTaxonomy,
		Sample:  key,
		Inputs:  map[string]string{"dbready": DBMarker(out, "kraken2")},
		Outputs: map[string]string{"report": KrakenReport(out, key)},
		Res:     res,
	}
	extra := b.cfg.Extra(StageTaxonomy)
	if s.HasIlluminaPair() {
		n.Inputs["r1"] = TrimmedR1(out, key)
		n.Inputs["r2"] = TrimmedR2(out, key)
		n.Command = fmt.Sprintf("kraken2 --threads %d %s --paired {i:r1} {i:r2} --report {o:report} --output /dev/null # {i:dbready}", res.Threads, extra)
	} else {
		n.Inputs["long"] = TrimmedLong(out, key)
		n.Command = fmt.Sprintf("kraken2 --threads %d %s {i:long} --report {o:report} --output /dev/null # {i:dbready}", res.Threads, extra)
	}
	return n, nil
}

// assemblyNode picks the assembler for the sample's modality
// combination. A paired-end assembly only materializes when both mates
// exist; hybrid assembly additionally takes the trimmed long reads.
func (b *Builder) assemblyNode(key string, s registry.Sample) (Node, error) {
	res, err := b.cfg.Resource(StageAssembly)
	if err != nil {
		return Node{}, err
	}
	out := b.cfg.OutDir
	n := Node{
		Stage:   StageAssembly,
		Sample:  key,
		Inputs:  map[string]string{},
		Outputs: map[string]string{"asm": Assembly(out, key)},
		Res:     res,
	}
	extra := b.cfg.Extra(StageAssembly)
	switch s.SeqMethod() {
	case registry.MethodHybrid:
		n.Inputs["r1"] = TrimmedR1(out, key)
		n.Inputs["r2"] = TrimmedR2(out, key)
		n.Inputs["long"] = TrimmedLong(out, key)
		n.Command = fmt.Sprintf("unicycler -1 {i:r1} -2 {i:r2} -l {i:long} -t %d %s -o $(dirname {o:asm})/work && cp $(dirname {o:asm})/work/assembly.fasta {o:asm}", res.Threads, extra)
	case registry.MethodIllumina:
		n.Inputs["r1"] = TrimmedR1(out, key)
		n.Inputs["r2"] = TrimmedR2(out, key)
		n.Command = fmt.Sprintf("unicycler -1 {i:r1} -2 {i:r2} -t %d %s -o $(dirname {o:asm})/work && cp $(dirname {o:asm})/work/assembly.fasta {o:asm}", res.Threads, extra)
	case registry.MethodNanopore:
		n.Inputs["long"] = TrimmedLong(out, key)
		n.Command = fmt.Sprintf("flye --nano-hq {i:long} --threads %d %s --out-dir $(dirname {o:asm})/work && cp $(dirname {o:asm})/work/assembly.fasta {o:asm}", res.Threads, extra)
	default:
		return Node{}, fmt.Errorf("sample %s: no usable modality for assembly", key)
	}
	return n, nil
}

// guardedAsmNode builds an assembly-consuming node wrapped in the
// empty-input guard. cmdFormat takes the stage's extra parameters and
// an optional sample argument.
func (b *Builder) guardedAsmNode(stage, key, asm string, outputs map[string]string, cmdFormat, sampleArg string) (Node, error) {
	res, err := b.cfg.Resource(stage)
	if err != nil {
		return Node{}, err
	}
	inputs := map[string]string{"asm": asm}
	switch stage {
	case StageAnnotation:
		inputs["dbready"] = DBMarker(b.cfg.OutDir, "prokka")
	case StageAMRFinder:
		inputs["dbready"] = DBMarker(b.cfg.OutDir, "amrfinder")
	}
	var cmd string
	if sampleArg != "" {
		cmd = fmt.Sprintf(cmdFormat, b.cfg.Extra(stage), sampleArg)
	} else {
		cmd = fmt.Sprintf(cmdFormat, b.cfg.Extra(stage))
	}
	ports := make([]string, 0, len(outputs))
	for port := range outputs {
		ports = append(ports, port)
	}
	full := guarded(cmd, "asm", ports)
	if _, ok := inputs["dbready"]; ok {
		// Marker referenced outside the guard so the comment cannot
		// swallow the closing fi.
		full += " # {i:dbready}"
	}
	return Node{
		Stage:   stage,
		Sample:  key,
		Command: full,
		Inputs:  inputs,
		Outputs: outputs,
		Res:     res,
		Guarded: true,
	}, nil
}

func (b *Builder) resfinderNode(key string) (Node, error) {
	res, err := b.cfg.Resource(StageResFinder)
	if err != nil {
		return Node{}, err
	}
	out := b.cfg.OutDir
	cmd := fmt.Sprintf("run_resfinder.py -ifq {i:r1} {i:r2} %s -o $(dirname {o:results}) && test -e {o:results} && test -e {o:pheno}", b.cfg.Extra(StageResFinder))
	return Node{
		Stage:   StageResFinder,
		Sample:  key,
		Command: guarded(cmd, "r1", []string{"results", "pheno"}) + " # {i:dbready}",
		Inputs: map[string]string{
			"r1":      TrimmedR1(out, key),
			"r2":      TrimmedR2(out, key),
			"dbready": DBMarker(out, "resfinder"),
		},
		Outputs: map[string]string{
			"results": ResFinderResults(out, key),
			"pheno":   ResFinderPheno(out, key),
		},
		Res:     res,
		Guarded: true,
	}, nil
}
