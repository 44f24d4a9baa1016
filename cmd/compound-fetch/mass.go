// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/compound-fetch/internal/fetch"
	"github.com/pdiddy/compound-fetch/internal/index"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

var massCmd = &cobra.Command{
	Use:   "mass",
	Short: "Index every compound in an exact mass range",
	Long: `Mass searches PubChem for compounds whose exact mass lies in
[--lower, --upper], downloads their structures, and prints each compound ID
with its molecular formula.

With --cache-dir, a directory that already holds records is read instead of
the network, and an empty or missing one is filled with one SDF file per
compound. By default only compounds created on or before 2006/02/06 match;
set create_date_cutoff in the config file (empty to disable) to change it.`,
	RunE: runMass,
}

func init() {
	massCmd.Flags().Float64("lower", 0, "lower exact mass bound (inclusive)")
	massCmd.Flags().Float64("upper", 0, "upper exact mass bound (inclusive)")
	massCmd.Flags().String("cache-dir", "", "directory caching one SDF record per compound")
	massCmd.Flags().Bool("json", false, "print the index as JSON")
	massCmd.MarkFlagRequired("lower")
	massCmd.MarkFlagRequired("upper")
	addWorkflowFlags(massCmd)

	rootCmd.AddCommand(massCmd)
}

func runMass(cmd *cobra.Command, args []string) error {
	if err := bindWorkflowFlags(cmd); err != nil {
		return err
	}
	lower, _ := cmd.Flags().GetFloat64("lower")
	upper, _ := cmd.Flags().GetFloat64("upper")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	record, _ := cmd.Flags().GetBool("index")

	f, err := newFetcher()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	started := time.Now()
	mode := "mass"
	var res fetch.Result
	if cacheDir != "" {
		mode = "mass-cached"
		res, err = f.SearchByMassRangeCached(ctx, lower, upper, cacheDir)
	} else {
		res, err = f.SearchByMassRange(ctx, lower, upper)
	}
	if err != nil {
		return err
	}

	if record {
		query := res.Query
		if res.Source == fetch.SourceCache {
			query = cacheDir
		}
		run := types.Run{
			Mode:      mode,
			Query:     query,
			Source:    string(res.Source),
			Skipped:   res.Skipped,
			StartedAt: started,
		}
		if err := recordRun(cmd, run, res.Index); err != nil {
			return err
		}
	}

	if jsonOutput {
		return writeJSON(os.Stdout, res.Index)
	}
	return printIndex(res.Index)
}

func printIndex(idx fetch.Index) error {
	if len(idx) == 0 {
		fmt.Println("No compounds found.")
		return nil
	}
	rows := make([][]string, 0, len(idx))
	for _, id := range sortedIDs(idx) {
		rows = append(rows, []string{id, idx[id]})
	}
	fmt.Println(renderTable(os.Stdout, []string{"CID", "Formula"}, rows, []columnAlignment{alignRight, alignLeft}))
	fmt.Printf("%d compound(s)\n", len(idx))
	return nil
}

func recordRun(cmd *cobra.Command, run types.Run, idx map[string]string) error {
	store, err := index.NewStore(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.RecordRun(cmd.Context(), run, idx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "recorded run %s (%d compound(s)) in %s\n", id, len(idx), store.Dir())
	return nil
}
