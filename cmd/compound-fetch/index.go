// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/compound-fetch/internal/index"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Query the local compound index",
	Long: `Index reads the SQLite compound index filled by "mass --index" and
"ids --index". Use subcommands to list compounds, show statistics, or export.`,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed compounds",
	RunE:  runIndexList,
}

var indexLookupCmd = &cobra.Command{
	Use:   "lookup cid",
	Short: "Show the formula recorded for a compound ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexLookup,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the index",
	RunE:  runIndexStats,
}

var indexRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded retrieval runs",
	RunE:  runIndexRuns,
}

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs and compounds to YAML",
	Long: `Export writes every recorded run and compound to --out, or to
export.yaml in the index directory.`,
	RunE: runIndexExport,
}

func openIndex() (*index.Store, error) {
	return index.NewStore(indexConfig())
}

func runIndexList(cmd *cobra.Command, args []string) error {
	formula, _ := cmd.Flags().GetString("formula")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	var compounds []types.Compound
	if formula != "" {
		compounds, err = store.ByFormula(cmd.Context(), formula)
	} else {
		compounds, err = store.List(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, compounds)
	}
	if len(compounds) == 0 {
		fmt.Println("No compounds indexed.")
		return nil
	}
	rows := make([][]string, len(compounds))
	for i, c := range compounds {
		rows[i] = []string{c.CID, c.Formula, c.RunID, humanize.Time(c.UpdatedAt)}
	}
	fmt.Println(renderTable(os.Stdout, []string{"CID", "Formula", "Run", "Updated"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	return nil
}

func runIndexLookup(cmd *cobra.Command, args []string) error {
	store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := store.Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", c.CID, c.Formula)
	return nil
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(os.Stdout, st)
	}

	last := "never"
	if !st.LastRun.IsZero() {
		last = humanize.Time(st.LastRun)
	}
	rows := [][]string{
		{"Compounds", humanize.Comma(int64(st.Compounds))},
		{"Distinct formulas", humanize.Comma(int64(st.Formulas))},
		{"Runs", strconv.Itoa(st.Runs)},
		{"Last run", last},
	}
	fmt.Println(renderTable(os.Stdout, []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}

func runIndexRuns(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(os.Stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID, r.Mode, r.Source, strconv.Itoa(r.Count), strconv.Itoa(r.Skipped),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		}
	}
	fmt.Println(renderTable(os.Stdout, []string{"Run", "Mode", "Source", "Count", "Skipped", "Started"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
	return nil
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.ExportYAML(cmd.Context(), out)
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

func init() {
	indexListCmd.Flags().String("formula", "", "only compounds with this molecular formula")
	indexListCmd.Flags().Int("limit", 0, "maximum compounds to list (0 = default 1000)")
	indexListCmd.Flags().Bool("json", false, "output as JSON")
	indexStatsCmd.Flags().Bool("json", false, "output as JSON")
	indexRunsCmd.Flags().Bool("json", false, "output as JSON")
	indexExportCmd.Flags().String("out", "", "export file (default: <index-dir>/export.yaml)")

	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexLookupCmd)
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexRunsCmd)
	indexCmd.AddCommand(indexExportCmd)

	rootCmd.AddCommand(indexCmd)
}
