package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/registry"
)

// Aggregate left-merges the collected result fragments into the
// canonical metadata on the primary identifier. Every sample of the
// canonical table gets exactly one row; samples whose stages were
// inapplicable or produced placeholders carry explicit empty values.
func Aggregate(tbl *registry.Table, res Results, cfg config.Config) (dataframe.DataFrame, error) {
	primary := tbl.PrimaryID

	// Result fragments are keyed by whatever identifier the stage
	// outputs embedded; resolve each to the primary key, refusing to
	// guess on a mismatch.
	fields := map[string]map[string]string{}
	for _, key := range tbl.Keys() {
		row := map[string]string{}
		for _, col := range ResultColumns {
			row[col] = ""
		}
		fields[key] = row
	}
	for fragKey, r := range res.MLST {
		key, err := resolveKey(tbl, cfg, fragKey)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		fields[key]["Scheme_mlst"] = r.Scheme
		fields[key]["ST"] = r.ST
		fields[key]["MLST"] = r.Alleles
	}
	for fragKey, r := range res.AMRFinder {
		key, err := resolveKey(tbl, cfg, fragKey)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		fields[key]["AMR"] = r.AMR
		fields[key]["VIRULENCE"] = r.Virulence
		fields[key]["SCOPE_core"] = r.Core
	}
	for fragKey, r := range res.ResFinder {
		key, err := resolveKey(tbl, cfg, fragKey)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		fields[key]["GENE_resfinder"] = r.Genes
		fields[key]["PHENO_resfinder"] = r.Pheno
	}

	metaDF := dataframe.LoadRecords(tbl.Records(),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if metaDF.Error() != nil {
		return metaDF, fmt.Errorf("building metadata frame: %w", metaDF.Error())
	}

	resRecords := [][]string{append([]string{primary}, ResultColumns...)}
	for _, key := range tbl.Keys() {
		row := []string{key}
		for _, col := range ResultColumns {
			row = append(row, fields[key][col])
		}
		resRecords = append(resRecords, row)
	}
	resDF := dataframe.LoadRecords(resRecords,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if resDF.Error() != nil {
		return resDF, fmt.Errorf("building results frame: %w", resDF.Error())
	}

	merged := metaDF.LeftJoin(resDF, primary)
	if merged.Error() != nil {
		return merged, fmt.Errorf("merging results into metadata: %w", merged.Error())
	}

	// Derived columns: sequencing-method category and run identifier.
	methods := make([]string, len(tbl.Samples))
	for i, s := range tbl.Samples {
		methods[i] = s.SeqMethod()
	}
	merged = merged.Mutate(series.New(methods, series.String, "OBS_MET_WGS"))
	runs := make([]string, len(tbl.Samples))
	for i := range runs {
		runs[i] = cfg.RunName
	}
	merged = merged.Mutate(series.New(runs, series.String, "CARRERA"))

	merged = merged.Arrange(dataframe.Sort(primary))
	if merged.Error() != nil {
		return merged, fmt.Errorf("sorting report: %w", merged.Error())
	}
	return merged, nil
}

// resolveKey maps a result fragment's key onto the canonical primary
// identifier. A key matching neither candidate identifier column, or
// matching two different samples across them, is a fatal mismatch.
func resolveKey(tbl *registry.Table, cfg config.Config, fragKey string) (string, error) {
	primary, alternate := tbl.PrimaryID, cfg.AlternateID()

	var primaryHit, alternateHit []string
	for _, s := range tbl.Samples {
		if s.Field(primary) == fragKey {
			primaryHit = append(primaryHit, tbl.Key(s))
		}
		if s.Field(alternate) == fragKey {
			alternateHit = append(alternateHit, tbl.Key(s))
		}
	}

	switch {
	case len(primaryHit) == 1 && (len(alternateHit) == 0 || alternateHit[0] == primaryHit[0]):
		return primaryHit[0], nil
	case len(primaryHit) == 0 && len(alternateHit) == 1:
		return alternateHit[0], nil
	case len(primaryHit) == 0 && len(alternateHit) == 0:
		return "", fmt.Errorf("result for %q matches no sample in columns %s or %s", fragKey, primary, alternate)
	}
	return "", fmt.Errorf("result for %q matches more than one sample across columns %s and %s", fragKey, primary, alternate)
}

// WriteTSV renders the report as tab-delimited text.
func WriteTSV(df dataframe.DataFrame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(df.Records()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// gvaRename maps the computed result columns onto the external GVA
// vocabulary for the surveillance rendition.
var gvaRename = [][2]string{
	{"Scheme_mlst", "ID_WS"},
	{"ST", "ST_WGS"},
	{"MLST", "MLST_WGS"},
	{"AMR", "R_Geno_WGS"},
	{"VIRULENCE", "V_WGS"},
	{"PHENO_resfinder", "PHENO_WGS"},
}

// passthrough result placeholders from the intake sheet, superseded by
// the computed columns in the external rendition.
var gvaDropped = []string{"scheme_mlst", "st", "mlst", "amr", "pheno_resfinder", "virulence"}

// GVARendition derives the external surveillance report: intake
// columns restored to their raw names, computed columns renamed to the
// *_WGS vocabulary, plus the deposit storage path built from the run
// identifier's site code.
func GVARendition(df dataframe.DataFrame, cfg config.Config) (dataframe.DataFrame, error) {
	keep := []string{}
	dropped := map[string]bool{}
	for _, c := range gvaDropped {
		dropped[c] = true
	}
	for _, name := range df.Names() {
		if !dropped[name] {
			keep = append(keep, name)
		}
	}
	out := df.Select(keep)
	if out.Error() != nil {
		return out, fmt.Errorf("selecting GVA columns: %w", out.Error())
	}

	for _, rn := range gvaRename {
		out = out.Rename(rn[1], rn[0])
		if out.Error() != nil {
			return out, fmt.Errorf("renaming %s to %s: %w", rn[0], rn[1], out.Error())
		}
	}
	for _, col := range []string{"id", "id2", "collection_date", "organism", "relevance", "illumina_r1", "illumina_r2", "nanopore", "confirmation_note", "outbreak_id", "comment"} {
		ext := registry.ExternalName(col)
		if ext == col {
			continue
		}
		out = out.Rename(ext, col)
		if out.Error() != nil {
			return out, fmt.Errorf("renaming %s to %s: %w", col, ext, out.Error())
		}
	}

	// Deposit path: site code is the fixed-length prefix of the run
	// identifier's second underscore segment.
	site := config.SiteCode(cfg.RunName)
	methods := out.Col("OBS_MET_WGS").Records()
	paths := make([]string, len(methods))
	for i, m := range methods {
		if site == "" || cfg.StorageCabinet() == "" || m == "" {
			continue
		}
		paths[i] = fmt.Sprintf("%s/deposit/CVA_%s/%s/%s", cfg.StorageCabinet(), site, strings.ToLower(m), cfg.RunName)
	}
	out = out.Mutate(series.New(paths, series.String, "STORAGE_PATH"))
	if out.Error() != nil {
		return out, fmt.Errorf("deriving storage paths: %w", out.Error())
	}
	return out, nil
}
