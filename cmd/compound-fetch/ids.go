// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/compound-fetch/internal/fetch"
	"github.com/pdiddy/compound-fetch/internal/sdf"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

var idsCmd = &cobra.Command{
	Use:   "ids [cid...]",
	Short: "Download structure records for a list of compound IDs",
	Long: `Ids downloads the SDF records of the given PubChem compound IDs and writes
them to --out (or stdout) in the order requested. IDs the server does not
know are reported and left out. With --from, IDs are also read one per line
from a file ("-" for stdin); blank lines and lines starting with # are ignored.`,
	RunE: runIDs,
}

func init() {
	idsCmd.Flags().String("out", "", "write records to this SDF file (default: stdout)")
	idsCmd.Flags().String("from", "", "read compound IDs from a file, one per line")
	addWorkflowFlags(idsCmd)

	rootCmd.AddCommand(idsCmd)
}

func runIDs(cmd *cobra.Command, args []string) error {
	if err := bindWorkflowFlags(cmd); err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("out")
	fromPath, _ := cmd.Flags().GetString("from")
	record, _ := cmd.Flags().GetBool("index")

	ids := append([]string(nil), args...)
	if fromPath != "" {
		more, err := readIDFile(fromPath)
		if err != nil {
			return err
		}
		ids = append(ids, more...)
	}
	if len(ids) == 0 {
		return fmt.Errorf("provide one or more compound IDs or --from")
	}

	f, err := newFetcher()
	if err != nil {
		return err
	}

	started := time.Now()
	recs, err := f.SearchByIdentifiers(cmd.Context(), ids)
	if err != nil {
		return err
	}

	ordered, missing := orderRecords(recs, ids)
	for _, id := range missing {
		fmt.Fprintf(os.Stderr, "  not found: %s\n", id)
	}

	if err := writeRecords(outPath, ordered); err != nil {
		return err
	}

	if record {
		idx := make(map[string]string, len(recs))
		for id, rec := range recs {
			idx[id] = rec.Formula()
		}
		query, _ := fetch.IdentifierQuery(ids)
		run := types.Run{Mode: "ids", Query: query, Source: string(fetch.SourceNetwork), StartedAt: started}
		if err := recordRun(cmd, run, idx); err != nil {
			return err
		}
	}
	return nil
}

// orderRecords lists recs in the order of ids, once per ID, and returns the
// IDs that have no record.
func orderRecords(recs fetch.Records, ids []string) (ordered []*sdf.Record, missing []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		if rec, ok := recs[id]; ok {
			ordered = append(ordered, rec)
		} else {
			missing = append(missing, id)
		}
	}
	return ordered, missing
}

func writeRecords(path string, recs []*sdf.Record) error {
	if path == "" {
		return sdf.WriteAll(os.Stdout, recs)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := sdf.WriteAll(out, recs); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d record(s) to %s\n", len(recs), path)
	return nil
}

func readIDFile(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening ID file: %w", err)
		}
		defer f.Close()
		r = f
	}
	return parseIDList(r)
}

func parseIDList(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ID list: %w", err)
	}
	return ids, nil
}
