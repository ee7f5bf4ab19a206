// Package pipeline builds the per-sample task graph: which stages
// apply to which samples, with what inputs, outputs and resources. It
// declares work; execution belongs to the runner.
package pipeline

import "path/filepath"

// Artifact path construction. Every path is a pure function of
// (output root, sample id, stage), so no two samples can collide.

func TrimmedR1(outdir, sample string) string {
	return filepath.Join(outdir, "qc", "fastp", sample+"_R1.fastq.gz")
}

func TrimmedR2(outdir, sample string) string {
	return filepath.Join(outdir, "qc", "fastp", sample+"_R2.fastq.gz")
}

func TrimmedLong(outdir, sample string) string {
	return filepath.Join(outdir, "qc", "nanofilt", sample+".fastq.gz")
}

// GateMarker is the zero-byte certification artifact of the read-count
// checkpoint. Its existence is the certification.
func GateMarker(outdir, sample string) string {
	return filepath.Join(outdir, "qc", "gate", sample+".certified")
}

func KrakenReport(outdir, sample string) string {
	return filepath.Join(outdir, "taxonomy", sample+".kraken2.report")
}

func Assembly(outdir, sample string) string {
	return filepath.Join(outdir, "assembly", sample, sample+".fasta")
}

func AssemblyStats(outdir, sample string) string {
	return filepath.Join(outdir, "asm_stats", sample, "report.tsv")
}

func Annotation(outdir, sample string) string {
	return filepath.Join(outdir, "annotation", sample, sample+".gff")
}

func AMRFinderTSV(outdir, sample string) string {
	return filepath.Join(outdir, "amr_mlst", sample+"_amrfinder.tsv")
}

func MLSTTSV(outdir, sample string) string {
	return filepath.Join(outdir, "amr_mlst", sample+"_mlst.tsv")
}

func ResFinderDir(outdir, sample string) string {
	return filepath.Join(outdir, "amr_mlst", "resfinder", sample)
}

func ResFinderResults(outdir, sample string) string {
	return filepath.Join(ResFinderDir(outdir, sample), "ResFinder_results_tab.txt")
}

func ResFinderPheno(outdir, sample string) string {
	return filepath.Join(ResFinderDir(outdir, sample), "pheno_table.txt")
}

// DBMarker is the flag file signalling that an externally provisioned
// database is ready. Only its existence matters.
func DBMarker(outdir, db string) string {
	return filepath.Join(outdir, "db", db+".ready")
}

func AMRMLSTDir(outdir string) string {
	return filepath.Join(outdir, "amr_mlst")
}

func ReportDir(outdir string) string {
	return filepath.Join(outdir, "report")
}
