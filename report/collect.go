// Package report aggregates the scattered per-sample analysis outputs
// into one wide table per run and renders the final report artifacts.
package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Result column vocabulary of the aggregated report.
var ResultColumns = []string{
	"Scheme_mlst", "ST", "MLST",
	"AMR", "VIRULENCE", "SCOPE_core",
	"GENE_resfinder", "PHENO_resfinder",
}

// MLSTResult is the typing outcome of one sample.
type MLSTResult struct {
	Scheme  string
	ST      string
	Alleles string
}

// AMRResult is the gene-screening outcome of one sample.
type AMRResult struct {
	AMR       string
	Virulence string
	Core      string
}

// ResFinderResult is the resistance prediction of one sample.
type ResFinderResult struct {
	Genes string
	Pheno string
}

// Results bundles every collected fragment, keyed by the sample name
// embedded in the output file names.
type Results struct {
	MLST      map[string]MLSTResult
	AMRFinder map[string]AMRResult
	ResFinder map[string]ResFinderResult
}

// Collect gathers all result fragments under the amr_mlst output
// directory. Missing directories yield empty maps, not errors: a
// legitimately inapplicable stage must surface as empty values later,
// never as a failure here.
func Collect(amrMlstDir string) (Results, error) {
	res := Results{
		MLST:      map[string]MLSTResult{},
		AMRFinder: map[string]AMRResult{},
		ResFinder: map[string]ResFinderResult{},
	}
	if err := collectMLST(amrMlstDir, res.MLST); err != nil {
		return res, err
	}
	if err := collectAMRFinder(amrMlstDir, res.AMRFinder); err != nil {
		return res, err
	}
	if err := collectResFinder(filepath.Join(amrMlstDir, "resfinder"), res.ResFinder); err != nil {
		return res, err
	}
	return res, nil
}

// collectMLST parses the one-line mlst outputs: input path, scheme, ST,
// then the allele calls.
func collectMLST(dir string, out map[string]MLSTResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.Contains(name, "_mlst") {
			continue
		}
		sample := strings.SplitN(name, "_mlst", 2)[0]
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading mlst output %s: %w", name, err)
		}
		line := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		r := MLSTResult{}
		if len(fields) > 1 {
			r.Scheme = fields[1]
		}
		if len(fields) > 2 {
			r.ST = fields[2]
		}
		if len(fields) > 3 {
			r.Alleles = strings.Join(fields[3:], " ")
		}
		out[sample] = r
	}
	return nil
}

// collectAMRFinder unifies the per-sample amrfinder tables into symbol
// sets grouped by element type and scope.
func collectAMRFinder(dir string, out map[string]AMRResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.Contains(name, "_amrfinder") {
			continue
		}
		sample := strings.SplitN(name, "_amrfinder", 2)[0]
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading amrfinder output %s: %w", name, err)
		}
		r, perr := parseAMRFinder(f)
		f.Close()
		if perr != nil {
			return fmt.Errorf("parsing amrfinder output %s: %w", name, perr)
		}
		if r != nil {
			out[sample] = *r
		}
	}
	return nil
}

func parseAMRFinder(r io.Reader) (*AMRResult, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		// Header only or empty placeholder: no fragment.
		return nil, nil
	}
	header := records[0]
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}
	symCol, typeCol, scopeCol := col("Element symbol"), col("Type"), col("Scope")
	if symCol < 0 || typeCol < 0 {
		return nil, fmt.Errorf("missing Element symbol/Type columns")
	}
	var amr, vir, core []string
	for _, rec := range records[1:] {
		if symCol >= len(rec) {
			continue
		}
		sym := rec[symCol]
		if typeCol < len(rec) {
			switch rec[typeCol] {
			case "AMR":
				amr = appendUnique(amr, sym)
			case "VIRULENCE":
				vir = appendUnique(vir, sym)
			}
		}
		if scopeCol >= 0 && scopeCol < len(rec) && rec[scopeCol] == "core" {
			core = appendUnique(core, sym)
		}
	}
	return &AMRResult{
		AMR:       strings.Join(amr, " "),
		Virulence: strings.Join(vir, " "),
		Core:      strings.Join(core, " "),
	}, nil
}

// phenoHeaderLines is the preamble length of the resfinder phenotype
// table before the tabular rows start.
const phenoHeaderLines = 17

// collectResFinder walks the per-sample resfinder directories for the
// resistance gene table and the predicted phenotype table.
func collectResFinder(dir string, out map[string]ResFinderResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sample := e.Name()
		r := ResFinderResult{}

		genes, err := parseResFinderGenes(filepath.Join(dir, sample, "ResFinder_results_tab.txt"))
		if err != nil {
			return fmt.Errorf("sample %s: %w", sample, err)
		}
		r.Genes = genes

		pheno, err := parseResFinderPheno(filepath.Join(dir, sample, "pheno_table.txt"))
		if err != nil {
			return fmt.Errorf("sample %s: %w", sample, err)
		}
		r.Pheno = pheno

		out[sample] = r
	}
	return nil
}

func parseResFinderGenes(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return "", err
	}
	if len(records) < 2 {
		return "", nil
	}
	geneCol := -1
	for i, h := range records[0] {
		if h == "Resistance gene" {
			geneCol = i
		}
	}
	if geneCol < 0 {
		return "", nil
	}
	var genes []string
	for _, rec := range records[1:] {
		if geneCol < len(rec) && rec[geneCol] != "" {
			genes = appendUnique(genes, rec[geneCol])
		}
	}
	return strings.Join(genes, " "), nil
}

// parseResFinderPheno condenses the resistant rows of the phenotype
// table into Antimicrobial1-Antimicrobial2[Class] groups.
func parseResFinderPheno(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	byClass := map[string][]string{}
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= phenoHeaderLines {
			continue
		}
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 3 || fields[2] != "Resistant" {
			continue
		}
		antimicrobial, class := fields[0], fields[1]
		byClass[class] = appendUnique(byClass[class], antimicrobial)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}

	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	groups := make([]string, 0, len(classes))
	for _, c := range classes {
		groups = append(groups, fmt.Sprintf("%s[%s]", strings.Join(byClass[c], "-"), c))
	}
	return strings.Join(groups, " "), nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
