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

	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/utils"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file named by the persistent --config
// flag and applies the command-line overrides on top of it.
func loadConfig(cmd *cobra.Command) config.Config {
	if cfgFile == "" {
		log.Fatalf("You must provide a config file with --config")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("Error loading config file: %v", err)
	}

	if cmd.Flags().Lookup("samples") != nil {
		samples, sErr := cmd.Flags().GetString("samples")
		if sErr != nil {
			log.Fatalf("Error getting samples flag: %v", sErr)
		}
		if samples != "" {
			cfg.Samples = samples
		}
	}
	if cmd.Flags().Lookup("out") != nil {
		outDir, outErr := cmd.Flags().GetString("out")
		if outErr != nil {
			log.Fatalf("Error getting output directory flag: %v", outErr)
		}
		if outDir != "" {
			cfg.OutDir = outDir
			if cfg.LogDir == "" {
				cfg.LogDir = filepath.Join(outDir, "logs")
			}
		}
	}
	if cmd.Flags().Lookup("run-name") != nil {
		runName, rErr := cmd.Flags().GetString("run-name")
		if rErr != nil {
			log.Fatalf("Error getting run-name flag: %v", rErr)
		}
		if runName != "" {
			cfg.RunName = runName
		}
	}

	if cfg.OutDir == "" {
		log.Fatalf("No output directory configured (outdir in config or --out)")
	}
	return cfg
}

// openRunLog opens the append-only JSON run log under the log
// directory and returns a structured logger writing to it.
func openRunLog(cfg config.Config, name string) (*slog.Logger, *os.File) {
	if err := utils.EnsureDir(cfg.LogDir); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}
	logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("%s.log", name))
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	jsonHandler := slog.NewJSONHandler(logFile, nil)
	return slog.New(jsonHandler), logFile
}
