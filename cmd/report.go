/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/microseq/bacflow/registry"
	"github.com/spf13/cobra"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerates the run reports from an existing results tree",
	Long: `Re-reads the validated sample sheet and the per-sample typing
results already present under the output directory and rebuilds the
aggregated TSV and XLSX reports. No analysis tools are run.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("report called")
		cfg := loadConfig(cmd)

		logger, logFile := openRunLog(cfg, "bacflow_"+cfg.RunName)
		defer logFile.Close()

		validatedPath := filepath.Join(cfg.OutDir, fmt.Sprintf("samplesinfo_%s_validated.csv", cfg.RunName))
		tbl, err := registry.ReadCanonical(validatedPath, cfg)
		if err != nil {
			log.Fatalf("Error reading validated sheet %s (run 'bacflow validate' first): %v", validatedPath, err)
		}

		if err := writeReports(cfg, tbl, nil, logger); err != nil {
			log.Fatalf("Report generation failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("out", "o", "", "output directory (overrides config) ")
	reportCmd.Flags().StringP("run-name", "n", "", "sequencing run name (overrides config) ")
}
