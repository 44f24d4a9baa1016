// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sdftest builds SDF fixtures for tests.
package sdftest

import (
	"fmt"
	"strings"
)

// Mol returns one SDF record (terminated by "$$$$") whose atoms are elems,
// bonded as a chain, followed by data items given as key, value pairs.
func Mol(title string, elems []string, kv ...string) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString("  -OEChem-01012600002D\n")
	b.WriteString("\n")

	nBonds := 0
	if len(elems) > 1 {
		nBonds = len(elems) - 1
	}
	fmt.Fprintf(&b, "%3d%3d  0     0  0  0  0  0  0999 V2000\n", len(elems), nBonds)
	for i, e := range elems {
		fmt.Fprintf(&b, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
			float64(i), float64(i)/2, 0.0, e)
	}
	for i := 1; i < len(elems); i++ {
		fmt.Fprintf(&b, "%3d%3d%3d  0  0  0  0\n", i, i+1, 1)
	}
	b.WriteString("M  END\n")

	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, "> <%s>\n%s\n\n", kv[i], kv[i+1])
	}
	b.WriteString("$$$$\n")
	return b.String()
}

// Compound returns a PubChem-style record carrying PUBCHEM_COMPOUND_CID.
func Compound(cid string, elems ...string) string {
	return Mol(cid, elems, "PUBCHEM_COMPOUND_CID", cid)
}

// Methanol returns CH4O with explicit hydrogens.
func Methanol(cid string) string {
	return Compound(cid, "C", "O", "H", "H", "H", "H")
}

// Water returns H2O.
func Water(cid string) string {
	return Compound(cid, "O", "H", "H")
}
