// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sdf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Write emits rec as one SDF record: the molfile block, each data item, and
// the "$$$$" terminator.
func Write(w io.Writer, rec *Record) error {
	bw := bufio.NewWriter(w)

	block := rec.MolBlock
	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	if !strings.Contains(block, molEnd) {
		block += molEnd + "\n"
	}
	bw.WriteString(block)

	for _, p := range rec.Properties {
		fmt.Fprintf(bw, "> <%s>\n", p.Key)
		if p.Value != "" {
			bw.WriteString(p.Value)
			bw.WriteString("\n")
		}
		bw.WriteString("\n")
	}
	bw.WriteString(recordTerminator + "\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing sdf record %q: %w", rec.Title, err)
	}
	return nil
}

// WriteAll writes every record in order.
func WriteAll(w io.Writer, recs []*Record) error {
	for _, rec := range recs {
		if err := Write(w, rec); err != nil {
			return err
		}
	}
	return nil
}
