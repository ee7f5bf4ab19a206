/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"

	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/samplesinfo"
	"github.com/spf13/cobra"
)

// samplesinfoCmd represents the samplesinfo command
var samplesinfoCmd = &cobra.Command{
	Use:   "samplesinfo",
	Short: "Builds a sample sheet from a directory of FASTQ files",
	Long: `Scans a directory of FASTQ files, pairs Illumina mates by
filename convention, and writes a sample sheet in the selected mode
vocabulary ready for 'bacflow validate'.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("samplesinfo called")

		mode, mErr := cmd.Flags().GetString("mode")
		if mErr != nil {
			log.Fatalf("Error getting mode flag: %v", mErr)
		}
		runName, rErr := cmd.Flags().GetString("run-name")
		if rErr != nil {
			log.Fatalf("Error getting run-name flag: %v", rErr)
		}
		platform, pErr := cmd.Flags().GetString("platform")
		if pErr != nil {
			log.Fatalf("Error getting platform flag: %v", pErr)
		}
		fastqDir, fErr := cmd.Flags().GetString("fastq")
		if fErr != nil {
			log.Fatalf("Error getting fastq flag: %v", fErr)
		}
		outDir, oErr := cmd.Flags().GetString("out")
		if oErr != nil {
			log.Fatalf("Error getting output directory flag: %v", oErr)
		}

		if mode != config.ModeGVA && mode != config.ModeNormal {
			log.Fatalf("Unknown mode %q (expected %q or %q)", mode, config.ModeGVA, config.ModeNormal)
		}
		check := config.Config{Mode: mode, RunName: runName}
		if err := check.ValidateRunName(); err != nil {
			log.Fatalf("Invalid run name: %v", err)
		}

		outPath, err := samplesinfo.Build(samplesinfo.Options{
			Mode:     mode,
			RunName:  runName,
			Platform: platform,
			FastqDir: fastqDir,
			OutDir:   outDir,
		})
		if err != nil {
			log.Fatalf("Error building sample sheet: %v", err)
		}
		fmt.Printf("Sample sheet written to %s\n", outPath)
		fmt.Printf("Now you can run:\n  bacflow validate --config config.yaml --samples %s --run-name %s\n", outPath, runName)
	},
}

func init() {
	rootCmd.AddCommand(samplesinfoCmd)
	samplesinfoCmd.Flags().StringP("mode", "m", "normal", "analysis mode: gva or normal ")
	samplesinfoCmd.Flags().StringP("run-name", "n", "", "sequencing run name (ex: 250319_ALIC991) ")
	samplesinfoCmd.Flags().StringP("platform", "p", "illumina", "sequencing platform: illumina or nanopore ")
	samplesinfoCmd.Flags().StringP("fastq", "f", "", "path to directory with FASTQ files ")
	samplesinfoCmd.Flags().StringP("out", "o", "", "output directory for the sheet (default: parent of fastq dir) ")
	_ = samplesinfoCmd.MarkFlagRequired("run-name")
	_ = samplesinfoCmd.MarkFlagRequired("fastq")
}
