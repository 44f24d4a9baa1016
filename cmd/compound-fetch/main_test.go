// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/compound-fetch/internal/fetch"
	"github.com/pdiddy/compound-fetch/internal/sdf"
	"github.com/pdiddy/compound-fetch/internal/sdf/sdftest"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

func TestParseIDList(t *testing.T) {
	in := "2244\n\n# aspirin above\n  887  \n962\n"
	got, err := parseIDList(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"2244", "887", "962"}, got)
}

func TestOrderRecords(t *testing.T) {
	parse := func(text string) *sdf.Record {
		recs, err := sdf.Parse(strings.NewReader(text))
		require.NoError(t, err)
		return recs[0]
	}
	recs := fetch.Records{"887": parse(sdftest.Methanol("887")), "962": parse(sdftest.Water("962"))}

	ordered, missing := orderRecords(recs, []string{"962", "404", "887", "962"})
	require.Len(t, ordered, 2)
	assert.Equal(t, "962", ordered[0].Title)
	assert.Equal(t, "887", ordered[1].Title)
	assert.Equal(t, []string{"404"}, missing)
}

func TestSortedIDs(t *testing.T) {
	got := sortedIDs(map[string]string{"100": "", "9": "", "x": "", "10": ""})
	assert.Equal(t, []string{"9", "10", "100", "x"}, got)
}

func TestFetchConfigFromViper(t *testing.T) {
	viper.Set("create_date_cutoff", "")
	viper.Set("poll.interval", "250ms")
	viper.Set("proxy.url", "http://proxy.example.org:3128")
	t.Cleanup(viper.Reset)

	loadedSecrets = map[string]string{"ncbi-api-key": "k123"}
	t.Cleanup(func() { loadedSecrets = nil })

	cfg := fetchConfig()
	assert.Equal(t, "", cfg.CreateDateCutoff)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, "http://proxy.example.org:3128", cfg.Proxy.URL)
	assert.Equal(t, "k123", cfg.NCBIAPIKey)
	assert.Equal(t, types.DefaultDatabase, cfg.Database)
	assert.Equal(t, types.DefaultIDProperty, cfg.IDProperty)
}
