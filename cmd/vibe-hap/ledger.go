package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-hap/internal/duckdb"
)

func newLedgerCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "ledger <ledger.duckdb>",
		Short: "Summarise an edit ledger",
		Long: `Print edit counts and net length change per haplotype, chromosome and
phase for a run recorded with build --ledger. --run is needed when the ledger
holds more than one run; --list prints the recorded runs and --clear removes
one.`,
		Example: `  vibe-hap ledger donor.duckdb
  vibe-hap ledger donor.duckdb --list
  vibe-hap ledger donor.duckdb --run donor.fa@20260101T120000Z
  vibe-hap ledger donor.duckdb --clear donor.fa@20260101T120000Z`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("expected one ledger file, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _ := cmd.Flags().GetBool("list")
			clearRun, _ := cmd.Flags().GetString("clear")
			if clearRun != "" {
				return runLedgerClear(cmd.OutOrStdout(), args[0], clearRun)
			}
			return runLedger(cmd.OutOrStdout(), args[0], runID, list)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run to summarise (default: the only run)")
	cmd.Flags().Bool("list", false, "List recorded runs")
	cmd.Flags().String("clear", "", "Remove the edits of this run")

	return cmd
}

// openLedger opens an existing ledger; it never creates one.
func openLedger(path string) (*duckdb.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

func runLedgerClear(w io.Writer, path, runID string) error {
	store, err := openLedger(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if !slices.Contains(runs, runID) {
		return fmt.Errorf("run %q not found in %s", runID, path)
	}
	if err := store.ClearRun(runID); err != nil {
		return fmt.Errorf("clear run: %w", err)
	}
	fmt.Fprintf(w, "Removed run %s from %s\n", runID, path)
	return nil
}

func runLedger(w io.Writer, path, runID string, list bool) error {
	store, err := openLedger(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("ledger %s holds no runs", path)
	}

	if list {
		for _, r := range runs {
			fmt.Fprintln(w, r)
		}
		return nil
	}

	if runID == "" {
		if len(runs) > 1 {
			return usageErrorf("ledger %s holds %d runs; pick one with --run (see --list)", path, len(runs))
		}
		runID = runs[0]
	}

	summary, err := store.Summary(runID)
	if err != nil {
		return err
	}
	if len(summary) == 0 {
		return fmt.Errorf("run %q not found in %s", runID, path)
	}

	fmt.Fprintf(w, "# run %s\n", runID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "haplotype\tchrom\tphase\tcount\tnet_change")
	for _, s := range summary {
		hap := fmt.Sprint(s.Haplotype)
		if s.Haplotype == 0 {
			hap = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", hap, s.Chrom, s.Phase, s.Count, s.NetChange)
	}
	return tw.Flush()
}
