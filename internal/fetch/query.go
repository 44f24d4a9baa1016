// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// minCreateDate is the open lower end Entrez accepts for date ranges.
const minCreateDate = "-2147483648"

// MassRangeQuery builds an Entrez term matching exact masses in [lo, hi].
// A non-empty cutoff (YYYY/MM/DD) also limits matches to compounds created
// on or before that date.
func MassRangeQuery(lo, hi float64, cutoff string) (string, error) {
	for _, v := range []float64{lo, hi} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return "", fmt.Errorf("%w: bound %v", ErrInvalidRange, v)
		}
	}
	if lo > hi {
		return "", fmt.Errorf("%w: lower bound %v above upper bound %v", ErrInvalidRange, lo, hi)
	}

	q := formatMass(lo) + ":" + formatMass(hi) + "[EMAS]"
	if cutoff = strings.TrimSpace(cutoff); cutoff != "" {
		q += " AND ((" + minCreateDate + " : " + cutoff + "[CreateDate]))"
	}
	return q, nil
}

func formatMass(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IdentifierQuery builds the disjunction "id1[uid] or id2[uid] ..." in input
// order, without deduplication.
func IdentifierQuery(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: no identifiers", ErrEmptyQuery)
	}
	terms := make([]string, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return "", fmt.Errorf("%w: identifier %d is blank", ErrEmptyQuery, i)
		}
		terms[i] = id + "[uid]"
	}
	return strings.Join(terms, " or "), nil
}
