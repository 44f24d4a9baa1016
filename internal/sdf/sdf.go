// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sdf reads and writes MDL structure-data files (V2000 molfile
// blocks with "> <KEY>" data items, records separated by "$$$$") and derives
// molecular formulas from their atom blocks.
package sdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	recordTerminator = "$$$$"
	molEnd           = "M  END"
	maxLineSize      = 1 << 20
)

// Atom is one line of a molfile atom block.
type Atom struct {
	Element string
	X, Y, Z float64
}

// Bond is one line of a molfile bond block. From and To are zero-based atom
// indexes.
type Bond struct {
	From, To, Order int
}

// Property is one SDF data item. Multi-line values are joined with "\n".
type Property struct {
	Key   string
	Value string
}

// Record is a single molecule from an SDF stream.
type Record struct {
	// Title is the first header line of the molfile block.
	Title string

	// MolBlock is the raw molfile block through "M  END", kept verbatim so
	// records can be written back unchanged.
	MolBlock string

	Atoms      []Atom
	Bonds      []Bond
	Properties []Property
}

// Property returns the trimmed value of the data item named key. The boolean
// is false when the item is absent or blank.
func (r *Record) Property(key string) (string, bool) {
	for _, p := range r.Properties {
		if p.Key == key {
			v := strings.TrimSpace(p.Value)
			return v, v != ""
		}
	}
	return "", false
}

// SetProperty replaces the value of key, appending it if absent.
func (r *Record) SetProperty(key, value string) {
	for i := range r.Properties {
		if r.Properties[i].Key == key {
			r.Properties[i].Value = value
			return
		}
	}
	r.Properties = append(r.Properties, Property{Key: key, Value: value})
}

// ParseError reports a malformed record in an SDF stream.
type ParseError struct {
	// Record is the zero-based position of the record in the stream.
	Record int
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sdf record %d line %d: %s", e.Record, e.Line, e.Msg)
}

// Parse reads every record from r in stream order. A trailing record without
// a "$$$$" terminator is accepted; blank trailing content is ignored.
func Parse(r io.Reader) ([]*Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []*Record
	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == recordTerminator {
			rec, err := parseRecord(lines, len(records))
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			lines = lines[:0]
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading sdf: %w", err)
	}

	if !blank(lines) {
		rec, err := parseRecord(lines, len(records))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

// maxCount is the largest value a three-column V2000 count field holds.
const maxCount = 999

func parseRecord(lines []string, idx int) (*Record, error) {
	perr := func(line int, format string, args ...any) error {
		return &ParseError{Record: idx, Line: line + 1, Msg: fmt.Sprintf(format, args...)}
	}

	if len(lines) < 4 {
		return nil, perr(len(lines), "molfile header truncated (%d lines)", len(lines))
	}
	counts := lines[3]
	if len(counts) < 6 {
		return nil, perr(3, "counts line too short: %q", counts)
	}
	if strings.Contains(counts, "V3000") {
		return nil, perr(3, "V3000 molfiles are not supported")
	}
	nAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, perr(3, "atom count: %v", err)
	}
	nBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, perr(3, "bond count: %v", err)
	}
	if nAtoms < 0 || nAtoms > maxCount {
		return nil, perr(3, "atom count %d out of range", nAtoms)
	}
	if nBonds < 0 || nBonds > maxCount {
		return nil, perr(3, "bond count %d out of range", nBonds)
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, perr(len(lines), "expected %d atom and %d bond lines", nAtoms, nBonds)
	}

	rec := &Record{
		Title: strings.TrimSpace(lines[0]),
		Atoms: make([]Atom, 0, nAtoms),
		Bonds: make([]Bond, 0, nBonds),
	}

	for i := 0; i < nAtoms; i++ {
		n := 4 + i
		atom, err := parseAtom(lines[n])
		if err != nil {
			return nil, perr(n, "%v", err)
		}
		rec.Atoms = append(rec.Atoms, atom)
	}
	for i := 0; i < nBonds; i++ {
		n := 4 + nAtoms + i
		bond, err := parseBond(lines[n], nAtoms)
		if err != nil {
			return nil, perr(n, "%v", err)
		}
		rec.Bonds = append(rec.Bonds, bond)
	}

	// The molfile block runs through "M  END"; without one it stops at the
	// first data header.
	end := len(lines)
	dataStart := len(lines)
	for n := 4 + nAtoms + nBonds; n < len(lines); n++ {
		if strings.HasPrefix(lines[n], molEnd) {
			end = n + 1
			dataStart = n + 1
			break
		}
		if strings.HasPrefix(lines[n], ">") {
			end = n
			dataStart = n
			break
		}
	}
	rec.MolBlock = strings.Join(lines[:end], "\n") + "\n"

	props, err := parseData(lines[dataStart:])
	if err != nil {
		return nil, perr(dataStart, "%v", err)
	}
	rec.Properties = props
	return rec, nil
}

func parseAtom(line string) (Atom, error) {
	if len(line) < 31 {
		return Atom{}, fmt.Errorf("atom line too short: %q", line)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(line[0:10]), 64)
	if err != nil {
		return Atom{}, fmt.Errorf("atom x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(line[10:20]), 64)
	if err != nil {
		return Atom{}, fmt.Errorf("atom y: %w", err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(line[20:30]), 64)
	if err != nil {
		return Atom{}, fmt.Errorf("atom z: %w", err)
	}
	symEnd := 34
	if len(line) < symEnd {
		symEnd = len(line)
	}
	elem := strings.TrimSpace(line[31:symEnd])
	if elem == "" {
		return Atom{}, fmt.Errorf("atom symbol missing: %q", line)
	}
	return Atom{Element: elem, X: x, Y: y, Z: z}, nil
}

func parseBond(line string, nAtoms int) (Bond, error) {
	if len(line) < 9 {
		return Bond{}, fmt.Errorf("bond line too short: %q", line)
	}
	from, err := fixedInt(line, 0, 3)
	if err != nil {
		return Bond{}, fmt.Errorf("bond first atom: %w", err)
	}
	to, err := fixedInt(line, 3, 6)
	if err != nil {
		return Bond{}, fmt.Errorf("bond second atom: %w", err)
	}
	order, err := fixedInt(line, 6, 9)
	if err != nil {
		return Bond{}, fmt.Errorf("bond order: %w", err)
	}
	if from < 1 || from > nAtoms || to < 1 || to > nAtoms {
		return Bond{}, fmt.Errorf("bond references atom outside 1..%d", nAtoms)
	}
	return Bond{From: from - 1, To: to - 1, Order: order}, nil
}

func fixedInt(line string, from, to int) (int, error) {
	if len(line) < to {
		to = len(line)
	}
	return strconv.Atoi(strings.TrimSpace(line[from:to]))
}

// parseData reads "> <KEY>" data items. Each value runs until a blank line.
func parseData(lines []string) ([]Property, error) {
	var props []Property
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, ">") {
			// Property block lines after the atom and bond blocks
			// (M  CHG, M  ISO, ...) when "M  END" is missing.
			continue
		}
		key, err := dataKey(line)
		if err != nil {
			return nil, err
		}
		var value []string
		for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
			i++
			value = append(value, lines[i])
		}
		props = append(props, Property{Key: key, Value: strings.Join(value, "\n")})
	}
	return props, nil
}

func dataKey(header string) (string, error) {
	open := strings.IndexByte(header, '<')
	if open < 0 {
		return "", fmt.Errorf("data header without <name>: %q", header)
	}
	closeIdx := strings.IndexByte(header[open+1:], '>')
	if closeIdx < 0 {
		return "", fmt.Errorf("unterminated data header: %q", header)
	}
	return header[open+1 : open+1+closeIdx], nil
}
