/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/microseq/bacflow/checkpoint"
	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/pipeline"
	"github.com/microseq/bacflow/registry"
	"github.com/microseq/bacflow/report"
	"github.com/microseq/bacflow/runner"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the full pipeline on a sequencing run",
	Long: `Runs the whole pipeline:

1. Validate and normalise the sample sheet
2. Provision databases and trim reads
3. Gate each sample on its trimmed read count
4. Taxonomy, assembly, annotation and AMR / MLST / ResFinder typing
   for the certified samples
5. Aggregate per-sample results into the run reports`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("run called")
		cfg := loadConfig(cmd)

		logger, logFile := openRunLog(cfg, "bacflow_"+cfg.RunName)
		defer logFile.Close()
		logger.Info("RUN", "PROGRAM", "INITIALISE", "RUN_NAME", cfg.RunName, "MODE", cfg.Mode, "STATUS", "STARTED")

		// ------------------------------- Validation ------------------------------- //
		fmt.Println("Validating sample sheet ...")
		tbl, rep := registry.Validate(cfg.Samples, cfg)
		reportPath := filepath.Join(cfg.LogDir, "validation_report.txt")
		if err := rep.WriteFile(reportPath); err != nil {
			log.Fatalf("Error writing validation report file: %v", err)
		}
		if tbl == nil || rep.Status() >= registry.StatusErrors {
			if err := rep.Write(os.Stderr); err != nil {
				log.Fatalf("Error writing validation report: %v", err)
			}
			logger.Error("RUN", "PROGRAM", "VALIDATE", "STATUS", "FAILED", "REPORT", reportPath)
			os.Exit(rep.Status())
		}
		if len(rep.Warnings) > 0 {
			fmt.Printf("Validation passed with %d warnings, see %s\n", len(rep.Warnings), reportPath)
		}
		logger.Info("RUN", "PROGRAM", "VALIDATE", "STATUS", "COMPLETED", "SAMPLES", len(tbl.Samples))

		validatedPath := filepath.Join(cfg.OutDir, fmt.Sprintf("samplesinfo_%s_validated.csv", cfg.RunName))
		if err := registry.WriteCanonical(tbl, validatedPath); err != nil {
			log.Fatalf("Error writing validated sheet: %v", err)
		}

		// ------------------------------ Initial phase ----------------------------- //
		b := pipeline.NewBuilder(cfg, tbl)
		initial, err := b.Initial()
		if err != nil {
			log.Fatalf("Error building initial phase: %v", err)
		}
		fmt.Printf("Initial phase: %d tasks\n", len(initial.Nodes))
		if err := runner.Run(initial, cfg, logger); err != nil {
			log.Fatalf("Initial phase failed: %v", err)
		}

		// --------------------------------- Gate ----------------------------------- //
		fmt.Println("Evaluating read-count gate ...")
		decisions, err := checkpoint.Evaluate(tbl, cfg, logger)
		if err != nil {
			log.Fatalf("Gate evaluation failed: %v", err)
		}
		certified := checkpoint.CertifiedSamples(decisions)
		fmt.Printf("Gate: %d of %d samples certified\n", len(certified), len(decisions))

		// ------------------------------- Gated phase ------------------------------ //
		if len(certified) > 0 {
			gated, gErr := b.Gated(certified)
			if gErr != nil {
				log.Fatalf("Error building gated phase: %v", gErr)
			}
			fmt.Printf("Gated phase: %d tasks\n", len(gated.Nodes))
			if err := runner.Run(gated, cfg, logger); err != nil {
				log.Fatalf("Gated phase failed: %v", err)
			}
		} else {
			logger.Warn("RUN", "PROGRAM", "GATE", "STATUS", "NO_CERTIFIED_SAMPLES")
			fmt.Println("No samples certified, skipping analysis phase")
		}

		// -------------------------------- Reports --------------------------------- //
		if err := writeReports(cfg, tbl, decisions, logger); err != nil {
			log.Fatalf("Report generation failed: %v", err)
		}

		logger.Info("RUN", "PROGRAM", "FINALISE", "RUN_NAME", cfg.RunName, "STATUS", "COMPLETED")
		fmt.Println("Run completed")
	},
}

// writeReports aggregates the per-sample results and renders every
// report artifact for the run.
func writeReports(cfg config.Config, tbl *registry.Table, decisions []checkpoint.Decision, logger *slog.Logger) error {
	fmt.Println("Aggregating results ...")
	res, err := report.Collect(pipeline.AMRMLSTDir(cfg.OutDir))
	if err != nil {
		return fmt.Errorf("collecting results: %w", err)
	}
	df, err := report.Aggregate(tbl, res, cfg)
	if err != nil {
		return fmt.Errorf("aggregating results: %w", err)
	}

	if len(decisions) > 0 {
		mean, median := report.ReadStats(decisions)
		logger.Info("RUN", "PROGRAM", "READ_STATS", "STATUS", "COMPLETED", "MEAN", mean, "MEDIAN", median)
	}

	reportDir := pipeline.ReportDir(cfg.OutDir)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return err
	}

	tsvPath := filepath.Join(reportDir, fmt.Sprintf("%s_results.tsv", cfg.RunName))
	if err := report.WriteTSV(df, tsvPath); err != nil {
		return fmt.Errorf("writing TSV report: %w", err)
	}
	xlsxPath := filepath.Join(reportDir, fmt.Sprintf("%s_results.xlsx", cfg.RunName))
	if err := report.WriteXLSX(df, xlsxPath); err != nil {
		return fmt.Errorf("writing XLSX report: %w", err)
	}

	if cfg.Mode == config.ModeGVA {
		gvaDF, gErr := report.GVARendition(df, cfg)
		if gErr != nil {
			return fmt.Errorf("building GVA rendition: %w", gErr)
		}
		gvaTSV := filepath.Join(reportDir, fmt.Sprintf("%s_gva.tsv", cfg.RunName))
		if err := report.WriteTSV(gvaDF, gvaTSV); err != nil {
			return fmt.Errorf("writing GVA TSV: %w", err)
		}
		gvaXLSX := filepath.Join(reportDir, fmt.Sprintf("%s_gva.xlsx", cfg.RunName))
		if err := report.WriteXLSX(gvaDF, gvaXLSX); err != nil {
			return fmt.Errorf("writing GVA XLSX: %w", err)
		}
	}

	chartPath := filepath.Join(reportDir, fmt.Sprintf("%s_run_report.html", cfg.RunName))
	if err := report.WriteRunChart(tbl, decisions, cfg.RunName, chartPath); err != nil {
		return fmt.Errorf("writing run chart: %w", err)
	}

	logger.Info("RUN", "PROGRAM", "REPORT", "STATUS", "COMPLETED", "DIR", reportDir)
	fmt.Printf("Reports written to %s\n", reportDir)
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("samples", "s", "", "path to sample sheet (overrides config) ")
	runCmd.Flags().StringP("out", "o", "", "output directory (overrides config) ")
	runCmd.Flags().StringP("run-name", "n", "", "sequencing run name (overrides config) ")
}
