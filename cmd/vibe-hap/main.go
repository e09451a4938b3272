// Package main provides the vibe-hap command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by bad arguments or configuration.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-hap",
		Short: "Personal genome synthesis from called variants",
		Long: `vibe-hap applies SNV and SV calls to a FASTA reference and writes one
or two donor haplotypes as FASTA.`,
		Example: `  # Haploid genome from small variants
  vibe-hap build --reference hg38.fa --snv calls.tsv.gz --output donor.fa

  # Diploid female genome from SNVs and SVs, with an edit ledger
  vibe-hap build --reference hg38.fa --snv calls.tsv --sv svs.tsv \
      --diploid --sex F --output donor.fa --ledger donor.duckdb

  # Summarise the ledger
  vibe-hap ledger donor.duckdb`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
	root.SetVersionTemplate("vibe-hap version {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(newBuildCmd())
	root.AddCommand(newLedgerCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig reads ~/.vibe-hap.yaml if present and binds VIBE_HAP_* variables.
func initConfig() error {
	viper.SetEnvPrefix("VIBE_HAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.SetConfigFile(filepath.Join(home, ".vibe-hap.yaml"))
	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and flags still apply.
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}
