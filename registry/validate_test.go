package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/microseq/bacflow/config"
)

func gvaConfig() config.Config {
	return config.Config{
		Mode:    config.ModeGVA,
		RunName: "240809_EPIM185",
		Species: map[string]config.Species{
			"escherichia_coli":     {GenomeSize: 5000000},
			"enterococcus_faecium": {GenomeSize: 3000000},
		},
	}
}

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samplesinfo.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing sheet fixture: %v", err)
	}
	return path
}

// touchReads creates empty read files so file-existence checks stay
// quiet in tests that target other findings.
func touchReads(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatalf("touching read file: %v", err)
		}
		paths[i] = p
	}
	return paths
}

const gvaHeader = "PETICION;CODIGO_MUESTRA_ORIGEN;FECHA_TOMA_MUESTRA;ESPECIE_SECUENCIA;MOTIVO_WGS;ILLUMINA_R1;ILLUMINA_R2;NANOPORE\n"

func TestValidateCleanGVASheet(t *testing.T) {
	dir := t.TempDir()
	reads := touchReads(t, dir, "s1_R1.fastq.gz", "s1_R2.fastq.gz")
	sheet := gvaHeader +
		"AR-001;H-77;2024-07-01;Escherichia coli;outbreak;" + reads[0] + ";" + reads[1] + ";\n"
	cfg := gvaConfig()

	tbl, rep := Validate(writeSheet(t, sheet), cfg)
	if rep.Status() != StatusOK {
		t.Fatalf("status = %d, want OK; report:\n%s", rep.Status(), rep)
	}
	if tbl == nil {
		t.Fatal("expected a table")
	}
	if tbl.PrimaryID != "id2" {
		t.Errorf("PrimaryID = %q, want id2 in GVA mode", tbl.PrimaryID)
	}
	s := tbl.Samples[0]
	if tbl.Key(s) != "AR-001" {
		t.Errorf("key = %q, want the request number AR-001", tbl.Key(s))
	}
	if s.Organism != "escherichia_coli" {
		t.Errorf("organism = %q, want normalized escherichia_coli", s.Organism)
	}
	if s.SeqMethod() != MethodIllumina {
		t.Errorf("SeqMethod = %q, want %s", s.SeqMethod(), MethodIllumina)
	}
}

func TestValidateReformatsDates(t *testing.T) {
	dir := t.TempDir()
	reads := touchReads(t, dir, "s1_R1.fastq.gz", "s1_R2.fastq.gz")
	sheet := gvaHeader +
		"AR-001;H-77;1/7/24;Enterococcus faecium;outbreak;" + reads[0] + ";" + reads[1] + ";\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl == nil {
		t.Fatalf("expected a table; report:\n%s", rep)
	}
	if got := tbl.Samples[0].CollectionDate; got != "2024-07-01" {
		t.Errorf("collection date = %q, want 2024-07-01", got)
	}
	if rep.Status() != StatusWarnings {
		t.Errorf("status = %d, want warnings for the reformat", rep.Status())
	}
}

func TestValidateInvalidDateIsFatal(t *testing.T) {
	sheet := gvaHeader +
		"AR-001;H-77;pronto;Escherichia coli;outbreak;r1.fq.gz;r2.fq.gz;\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl != nil {
		t.Fatal("expected nil table for uninterpretable date")
	}
	if rep.Status() != StatusFatal {
		t.Errorf("status = %d, want fatal", rep.Status())
	}
}

func TestValidateDuplicateIdentifiers(t *testing.T) {
	sheet := gvaHeader +
		"AR-001;H-77;;Escherichia coli;outbreak;r1.fq.gz;r2.fq.gz;\n" +
		"AR-001;H-78;;Escherichia coli;outbreak;r1.fq.gz;r2.fq.gz;\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl != nil {
		t.Fatal("expected nil table for duplicate primary identifiers")
	}
	found := false
	for _, f := range rep.Fatals {
		if strings.Contains(f, "rows 2 and 3") {
			found = true
		}
	}
	if !found {
		t.Errorf("fatal message should name both rows; got %v", rep.Fatals)
	}
}

func TestValidateMissingPrimaryValues(t *testing.T) {
	sheet := gvaHeader +
		";H-77;;Escherichia coli;outbreak;r1.fq.gz;r2.fq.gz;\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl != nil || rep.Status() != StatusFatal {
		t.Fatalf("expected fatal for row without primary identifier, got status %d", rep.Status())
	}
}

func TestValidateIdentifierCharset(t *testing.T) {
	sheet := gvaHeader +
		"AR 001/b;H-77;;Escherichia coli;outbreak;r1.fq.gz;r2.fq.gz;\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl == nil {
		t.Fatal("charset violations are errors, not fatal: expected a table")
	}
	if rep.Status() != StatusErrors {
		t.Errorf("status = %d, want errors for invalid identifier characters", rep.Status())
	}
}

func TestValidateNoModality(t *testing.T) {
	sheet := gvaHeader +
		"AR-001;H-77;;Escherichia coli;outbreak;;;\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl != nil || !rep.Fatal() {
		t.Fatal("expected fatal for a row with no data source")
	}
}

func TestValidateIncompletePairIsFatalWithoutNanopore(t *testing.T) {
	sheet := gvaHeader +
		"AR-001;H-77;;Escherichia coli;outbreak;r1.fq.gz;;\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl != nil || !rep.Fatal() {
		t.Fatalf("expected fatal for incomplete pair, got status %d", rep.Status())
	}
}

func TestValidateNanoporeModelRequirement(t *testing.T) {
	dir := t.TempDir()
	reads := touchReads(t, dir, "s1.fastq.gz")
	sheet := gvaHeader +
		"AR-001;H-77;;Escherichia coli;outbreak;;;" + reads[0] + "\n"

	cfg := gvaConfig()
	tbl, rep := Validate(writeSheet(t, sheet), cfg)
	if tbl != nil || !rep.Fatal() {
		t.Fatal("expected fatal when nanopore samples have no basecall model configured")
	}

	cfg.Params.Nanopore.DoradoModel = "dna_r10.4.1_e8.2_400bps_sup@v4.2.0"
	tbl, rep = Validate(writeSheet(t, sheet), cfg)
	if tbl == nil {
		t.Fatalf("expected a table with a valid model; report:\n%s", rep)
	}

	cfg.Params.Nanopore.DoradoModel = "dna_r12_madeup@v9"
	tbl, rep = Validate(writeSheet(t, sheet), cfg)
	if tbl == nil {
		t.Fatal("unknown model is an error, not fatal: expected a table")
	}
	if rep.Status() != StatusErrors {
		t.Errorf("status = %d, want errors for unknown model", rep.Status())
	}
}

func TestValidateUnknownOrganism(t *testing.T) {
	dir := t.TempDir()
	reads := touchReads(t, dir, "s1_R1.fastq.gz", "s1_R2.fastq.gz")
	sheet := gvaHeader +
		"AR-001;H-77;;Romulan fever agent;outbreak;" + reads[0] + ";" + reads[1] + ";\n"
	tbl, rep := Validate(writeSheet(t, sheet), gvaConfig())
	if tbl == nil {
		t.Fatalf("unknown organism must not be fatal; report:\n%s", rep)
	}
	if got := tbl.Samples[0].Organism; got != UnknownOrganism {
		t.Errorf("organism = %q, want the %q sentinel", got, UnknownOrganism)
	}
	if len(rep.Warnings) == 0 {
		t.Error("expected a warning for the catalog miss")
	}
}

func TestValidateBadRunNameIsFatal(t *testing.T) {
	cfg := gvaConfig()
	cfg.RunName = "240809EPIM185"
	tbl, rep := Validate(writeSheet(t, gvaHeader), cfg)
	if tbl != nil || rep.Status() != StatusFatal {
		t.Fatal("expected fatal for malformed run name in GVA mode")
	}
}

func TestValidateNormalMode(t *testing.T) {
	dir := t.TempDir()
	reads := touchReads(t, dir, "s1_R1.fastq.gz", "s1_R2.fastq.gz")
	sheet := "id,collection_date,organism,illumina_r1,illumina_r2,nanopore\n" +
		"sampleA,," + "," + reads[0] + "," + reads[1] + ",\n"
	cfg := config.Config{Mode: config.ModeNormal}
	tbl, rep := Validate(writeSheet(t, sheet), cfg)
	if tbl == nil {
		t.Fatalf("expected a table; report:\n%s", rep)
	}
	if tbl.PrimaryID != "id" {
		t.Errorf("PrimaryID = %q, want id in normal mode", tbl.PrimaryID)
	}
	if tbl.Delimiter != ',' {
		t.Errorf("delimiter = %q, want comma preserved", tbl.Delimiter)
	}
	// Missing organism and date are not findings in normal mode.
	if rep.Status() != StatusOK {
		t.Errorf("status = %d, want OK; report:\n%s", rep.Status(), rep)
	}
}

func TestWriteCanonicalIdempotent(t *testing.T) {
	dir := t.TempDir()
	reads := touchReads(t, dir, "s1_R1.fastq.gz", "s1_R2.fastq.gz")
	sheet := gvaHeader +
		"AR-001;H-77;1/7/24;Escherichia coli;outbreak;" + reads[0] + ";" + reads[1] + ";\n"
	cfg := gvaConfig()

	tbl, rep := Validate(writeSheet(t, sheet), cfg)
	if tbl == nil {
		t.Fatalf("validation failed:\n%s", rep)
	}

	first := filepath.Join(dir, "first.csv")
	if err := WriteCanonical(tbl, first); err != nil {
		t.Fatalf("WriteCanonical: %v", err)
	}

	again, err := ReadCanonical(first, cfg)
	if err != nil {
		t.Fatalf("ReadCanonical: %v", err)
	}
	s, ok := again.Lookup("AR-001")
	if !ok {
		t.Fatal("round-tripped table cannot resolve its own primary key")
	}
	if s.ID != "H-77" || s.Organism != "escherichia_coli" || s.CollectionDate != "2024-07-01" {
		t.Errorf("round-tripped sample = %+v, want normalized fields preserved", s)
	}
	if _, ok := again.Lookup("AR-999"); ok {
		t.Error("unknown key must not resolve")
	}
	second := filepath.Join(dir, "second.csv")
	if err := WriteCanonical(again, second); err != nil {
		t.Fatalf("WriteCanonical (round trip): %v", err)
	}

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if string(a) != string(b) {
		t.Errorf("canonical write is not idempotent:\n%s\nvs\n%s", a, b)
	}
}
