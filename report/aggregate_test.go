package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/registry"
)

func aggregateFixtures() (*registry.Table, Results, config.Config) {
	tbl := &registry.Table{
		PrimaryID: "id2",
		Delimiter: ';',
		Samples: []registry.Sample{
			{ID: "H-2", ID2: "AR-002", Organism: "enterococcus_faecium",
				IlluminaR1: "r1", IlluminaR2: "r2", Extra: map[string]string{}},
			{ID: "H-1", ID2: "AR-001", Organism: "escherichia_coli",
				Nanopore: "long", Extra: map[string]string{}},
		},
	}
	res := Results{
		// Keyed by the primary identifier directly.
		MLST: map[string]MLSTResult{
			"AR-002": {Scheme: "efaecium", ST: "172", Alleles: "atpA(1)"},
		},
		// Keyed by the alternate identifier; must resolve to AR-001.
		AMRFinder: map[string]AMRResult{
			"H-1": {AMR: "blaTEM-1", Virulence: "", Core: "blaTEM-1"},
		},
		ResFinder: map[string]ResFinderResult{},
	}
	cfg := config.Config{
		Mode:    config.ModeGVA,
		RunName: "240809_EPIM185",
		ModeConfig: map[string]config.ModeConfig{
			config.ModeGVA: {StorageCabinet: "/deposits"},
		},
	}
	return tbl, res, cfg
}

func TestAggregate(t *testing.T) {
	tbl, res, cfg := aggregateFixtures()
	df, err := Aggregate(tbl, res, cfg)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if df.Nrow() != 2 {
		t.Fatalf("rows = %d, want one per sample", df.Nrow())
	}

	// Sorted by the primary identifier, so AR-001 first.
	ids := df.Col("id2").Records()
	if ids[0] != "AR-001" || ids[1] != "AR-002" {
		t.Errorf("row order = %v, want sorted by id2", ids)
	}

	sts := df.Col("ST").Records()
	if sts[1] != "172" {
		t.Errorf("ST for AR-002 = %q, want 172", sts[1])
	}
	// Sample without an MLST fragment carries an explicit empty value.
	if sts[0] != "" {
		t.Errorf("ST for AR-001 = %q, want empty", sts[0])
	}

	// The alternate-keyed fragment landed on AR-001.
	amrs := df.Col("AMR").Records()
	if amrs[0] != "blaTEM-1" {
		t.Errorf("AMR for AR-001 = %q, want blaTEM-1 resolved via the alternate id", amrs[0])
	}

	methods := df.Col("OBS_MET_WGS").Records()
	if methods[0] != registry.MethodNanopore || methods[1] != registry.MethodIllumina {
		t.Errorf("sequencing methods = %v", methods)
	}
	runs := df.Col("CARRERA").Records()
	if runs[0] != "240809_EPIM185" {
		t.Errorf("run column = %v", runs)
	}
}

func TestAggregateRejectsUnknownFragmentKey(t *testing.T) {
	tbl, res, cfg := aggregateFixtures()
	res.MLST["ghost"] = MLSTResult{ST: "1"}
	if _, err := Aggregate(tbl, res, cfg); err == nil {
		t.Fatal("expected error for a fragment matching no sample")
	}
}

func TestAggregateRejectsAmbiguousFragmentKey(t *testing.T) {
	tbl, res, cfg := aggregateFixtures()
	// The same value in the alternate column of one sample and the
	// primary column of another is unresolvable.
	tbl.Samples[0].ID = "AR-001"
	res.MLST["AR-001"] = MLSTResult{ST: "9"}
	if _, err := Aggregate(tbl, res, cfg); err == nil {
		t.Fatal("expected error for an ambiguous fragment key")
	}
}

func TestWriteTSV(t *testing.T) {
	tbl, res, cfg := aggregateFixtures()
	df, err := Aggregate(tbl, res, cfg)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "report", "results.tsv")
	if err := WriteTSV(df, path); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading TSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("TSV lines = %d, want header plus two rows", len(lines))
	}
	if !strings.Contains(lines[0], "\t") {
		t.Error("TSV header is not tab-delimited")
	}
}

func TestGVARendition(t *testing.T) {
	tbl, res, cfg := aggregateFixtures()
	df, err := Aggregate(tbl, res, cfg)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	gva, err := GVARendition(df, cfg)
	if err != nil {
		t.Fatalf("GVARendition: %v", err)
	}

	names := map[string]bool{}
	for _, n := range gva.Names() {
		names[n] = true
	}
	for _, want := range []string{"PETICION", "CODIGO_MUESTRA_ORIGEN", "ST_WGS", "R_Geno_WGS", "PHENO_WGS", "STORAGE_PATH", "CARRERA"} {
		if !names[want] {
			t.Errorf("missing column %s in GVA rendition; have %v", want, gva.Names())
		}
	}
	for _, gone := range []string{"id", "id2", "ST", "AMR", "scheme_mlst"} {
		if names[gone] {
			t.Errorf("internal column %s leaked into the GVA rendition", gone)
		}
	}

	paths := gva.Col("STORAGE_PATH").Records()
	want := "/deposits/deposit/CVA_EPIM/nanopore/240809_EPIM185"
	if paths[0] != want {
		t.Errorf("storage path = %q, want %q", paths[0], want)
	}
}

func TestWriteXLSX(t *testing.T) {
	tbl, res, cfg := aggregateFixtures()
	df, err := Aggregate(tbl, res, cfg)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "report", "results.xlsx")
	if err := WriteXLSX(df, path); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("reading workbook rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("workbook rows = %d, want header plus two samples", len(rows))
	}
}
