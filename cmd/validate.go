/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/microseq/bacflow/registry"
	"github.com/microseq/bacflow/utils"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validates a sample sheet without running any analysis",
	Long: `Parses the sample sheet, applies the mode vocabulary, checks
identifiers, sequencing modalities, dates and organisms, and writes the
validation report plus the normalised sheet.

Exit status: 0 when the sheet is usable (clean or warnings only),
2 on errors, 3 on fatal findings.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("validate called")
		cfg := loadConfig(cmd)

		tbl, rep := registry.Validate(cfg.Samples, cfg)

		if err := rep.Write(os.Stdout); err != nil {
			log.Fatalf("Error writing validation report: %v", err)
		}
		if err := utils.EnsureDir(cfg.LogDir); err != nil {
			log.Fatalf("Failed to create log directory: %v", err)
		}
		reportPath := filepath.Join(cfg.LogDir, "validation_report.txt")
		if err := rep.WriteFile(reportPath); err != nil {
			log.Fatalf("Error writing validation report file: %v", err)
		}
		fmt.Printf("Validation report written to %s\n", reportPath)

		if tbl != nil {
			validatedPath := filepath.Join(cfg.OutDir, fmt.Sprintf("samplesinfo_%s_validated.csv", cfg.RunName))
			if err := utils.EnsureDir(cfg.OutDir); err != nil {
				log.Fatalf("Failed to create output directory: %v", err)
			}
			if err := registry.WriteCanonical(tbl, validatedPath); err != nil {
				log.Fatalf("Error writing validated sheet: %v", err)
			}
			fmt.Printf("Validated sheet written to %s (%d samples)\n", validatedPath, len(tbl.Samples))
		}

		os.Exit(exitStatus(rep.Status()))
	},
}

// exitStatus maps the report status to the process exit code. Warnings
// leave the sheet usable, so they exit clean.
func exitStatus(status int) int {
	if status < registry.StatusErrors {
		return 0
	}
	return status
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("samples", "s", "", "path to sample sheet (overrides config) ")
	validateCmd.Flags().StringP("out", "o", "", "output directory (overrides config) ")
	validateCmd.Flags().StringP("run-name", "n", "", "sequencing run name (overrides config) ")
}
