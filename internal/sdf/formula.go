// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sdf

import (
	"sort"
	"strconv"
	"strings"
)

// FormulaProperty is the PubChem data item used when a record has no atoms.
const FormulaProperty = "PUBCHEM_MOLECULAR_FORMULA"

// Formula returns the molecular formula in Hill order: carbon first, then
// hydrogen, then the remaining elements alphabetically. Without carbon every
// element, hydrogen included, is alphabetical. Counts of one are omitted.
// Only explicit atoms are counted.
func (r *Record) Formula() string {
	if len(r.Atoms) == 0 {
		v, _ := r.Property(FormulaProperty)
		return v
	}

	counts := make(map[string]int)
	for _, a := range r.Atoms {
		counts[normalizeElement(a.Element)]++
	}
	return HillFormula(counts)
}

// HillFormula formats element counts in Hill order.
func HillFormula(counts map[string]int) string {
	elems := make([]string, 0, len(counts))
	for e, n := range counts {
		if n > 0 {
			elems = append(elems, e)
		}
	}
	sort.Strings(elems)

	var order []string
	if counts["C"] > 0 {
		order = append(order, "C")
		if counts["H"] > 0 {
			order = append(order, "H")
		}
		for _, e := range elems {
			if e != "C" && e != "H" {
				order = append(order, e)
			}
		}
	} else {
		order = elems
	}

	var b strings.Builder
	for _, e := range order {
		b.WriteString(e)
		if n := counts[e]; n > 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}

// normalizeElement maps molfile symbols to element symbols. Deuterium and
// tritium count as hydrogen.
func normalizeElement(sym string) string {
	switch sym {
	case "D", "T":
		return "H"
	}
	if len(sym) > 1 {
		return strings.ToUpper(sym[:1]) + strings.ToLower(sym[1:])
	}
	return strings.ToUpper(sym)
}
