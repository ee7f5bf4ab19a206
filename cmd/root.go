/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bacflow",
	Short: "A bacterial WGS sample-processing pipeline",
	Long: `A pipeline core for bacterial whole-genome sequencing runs:

1.	Sample sheet validation and normalisation (gva and normal intake vocabularies)
2.	QC, trimming and taxonomy profiling
3.	Read-count gate before the expensive analysis stages
4.	Assembly, annotation, AMR / MLST / ResFinder typing
5.	Aggregated run reports (TSV, styled XLSX, HTML charts)
`,
	// Uncomment the following line if your bare application
	// has an action associated with it:
	// Run: func(cmd *cobra.Command, args []string) { },
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file ")
}
