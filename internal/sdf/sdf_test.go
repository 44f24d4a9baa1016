// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sdf

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/compound-fetch/internal/sdf/sdftest"
)

func TestParseMultipleRecords(t *testing.T) {
	input := sdftest.Methanol("887") + sdftest.Water("962")

	recs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "887", recs[0].Title)
	assert.Len(t, recs[0].Atoms, 6)
	assert.Len(t, recs[0].Bonds, 5)
	assert.Equal(t, Bond{From: 0, To: 1, Order: 1}, recs[0].Bonds[0])
	assert.Equal(t, "C", recs[0].Atoms[0].Element)

	cid, ok := recs[1].Property("PUBCHEM_COMPOUND_CID")
	assert.True(t, ok)
	assert.Equal(t, "962", cid)
}

func TestParseMultiLineProperty(t *testing.T) {
	input := sdftest.Mol("x", []string{"C"},
		"PUBCHEM_COMPOUND_CID", "297",
		"PUBCHEM_IUPAC_NAME", "methane\nalso methane",
	)

	recs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	name, ok := recs[0].Property("PUBCHEM_IUPAC_NAME")
	require.True(t, ok)
	assert.Equal(t, "methane\nalso methane", name)
}

func TestParseTrailingRecordWithoutTerminator(t *testing.T) {
	input := strings.TrimSuffix(sdftest.Water("962"), "$$$$\n")

	recs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "H2O", recs[0].Formula())
}

func TestParseCRLF(t *testing.T) {
	input := strings.ReplaceAll(sdftest.Water("962"), "\n", "\r\n")

	recs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	cid, ok := recs[0].Property("PUBCHEM_COMPOUND_CID")
	assert.True(t, ok)
	assert.Equal(t, "962", cid)
}

func TestParseEmpty(t *testing.T) {
	recs, err := Parse(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated header", "title\nprog\n$$$$\n"},
		{"bad counts", "t\np\n\nxx\n$$$$\n"},
		{"missing atom lines", "t\np\n\n  3  0  0     0  0  0  0  0  0999 V2000\nM  END\n$$$$\n"},
		{"negative atom count", "t\np\n\n -1  0  0     0  0  0  0  0  0999 V2000\nM  END\n$$$$\n"},
		{"negative bond count", "t\np\n\n  0 -5  0     0  0  0  0  0  0999 V2000\nM  END\n$$$$\n"},
		{"v3000", "t\np\n\n  0  0  0     0  0  0  0  0  0999 V3000\nM  END\n$$$$\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func TestPropertyBlankIsAbsent(t *testing.T) {
	rec := &Record{Properties: []Property{{Key: "PUBCHEM_COMPOUND_CID", Value: "  "}}}
	_, ok := rec.Property("PUBCHEM_COMPOUND_CID")
	assert.False(t, ok)

	_, ok = rec.Property("OTHER")
	assert.False(t, ok)
}

func TestSetProperty(t *testing.T) {
	rec := &Record{}
	rec.SetProperty("A", "1")
	rec.SetProperty("A", "2")
	rec.SetProperty("B", "3")

	assert.Equal(t, []Property{{Key: "A", Value: "2"}, {Key: "B", Value: "3"}}, rec.Properties)
}

func TestFormula(t *testing.T) {
	tests := []struct {
		name  string
		elems []string
		want  string
	}{
		{"methanol", []string{"C", "O", "H", "H", "H", "H"}, "CH4O"},
		{"water no carbon", []string{"O", "H", "H"}, "H2O"},
		{"ammonium chloride alphabetical", []string{"N", "Cl", "H", "H", "H", "H"}, "ClH4N"},
		{"carbon without hydrogen", []string{"C", "O", "O"}, "CO2"},
		{"deuterium counts as hydrogen", []string{"C", "D", "H", "H", "H"}, "CH4"},
		{"lowercase symbol", []string{"C", "CL", "H", "H", "H"}, "CH3Cl"},
		{"aspirin", append(append(repeat("C", 9), repeat("H", 8)...), repeat("O", 4)...), "C9H8O4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atoms := make([]Atom, len(tt.elems))
			for i, e := range tt.elems {
				atoms[i] = Atom{Element: e}
			}
			rec := &Record{Atoms: atoms}
			assert.Equal(t, tt.want, rec.Formula())
		})
	}
}

func TestFormulaFallsBackToProperty(t *testing.T) {
	rec := &Record{Properties: []Property{{Key: FormulaProperty, Value: "C2H6O"}}}
	assert.Equal(t, "C2H6O", rec.Formula())
}

func TestWriteRoundTrip(t *testing.T) {
	recs, err := Parse(strings.NewReader(sdftest.Methanol("887")))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, recs[0]))

	again, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, again, 1)

	assert.Equal(t, recs[0].MolBlock, again[0].MolBlock)
	assert.Equal(t, recs[0].Properties, again[0].Properties)
	assert.Equal(t, recs[0].Formula(), again[0].Formula())
}

func TestWriteAllAddsMolEnd(t *testing.T) {
	rec := &Record{
		MolBlock:   "t\np\n\n  0  0  0     0  0  0  0  0  0999 V2000",
		Properties: []Property{{Key: FormulaProperty, Value: "H2"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, []*Record{rec, rec}))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "M  END\n"))
	assert.Equal(t, 2, strings.Count(out, "$$$$\n"))
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
