/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/microseq/bacflow/pipeline"
	"github.com/microseq/bacflow/registry"
	"github.com/spf13/cobra"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Prints the task plan for a run without executing anything",
	Long: `Validates the sample sheet and prints both phases of the task
graph: the initial phase as it will run, and the gated phase as it
would run if every sample passes the read-count gate.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("plan called")
		cfg := loadConfig(cmd)

		tbl, rep := registry.Validate(cfg.Samples, cfg)
		if tbl == nil {
			if err := rep.Write(os.Stderr); err != nil {
				log.Fatalf("Error writing validation report: %v", err)
			}
			os.Exit(rep.Status())
		}

		b := pipeline.NewBuilder(cfg, tbl)
		initial, err := b.Initial()
		if err != nil {
			log.Fatalf("Error building initial phase: %v", err)
		}
		fmt.Printf("===== PHASE %s (%d tasks) =====\n", initial.Phase, len(initial.Nodes))
		fmt.Print(initial.Plan())

		gated, err := b.Gated(tbl.Keys())
		if err != nil {
			log.Fatalf("Error building gated phase: %v", err)
		}
		fmt.Printf("===== PHASE %s (%d tasks, assuming all samples certified) =====\n", gated.Phase, len(gated.Nodes))
		fmt.Print(gated.Plan())
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringP("samples", "s", "", "path to sample sheet (overrides config) ")
	planCmd.Flags().StringP("out", "o", "", "output directory (overrides config) ")
	planCmd.Flags().StringP("run-name", "n", "", "sequencing run name (overrides config) ")
}
