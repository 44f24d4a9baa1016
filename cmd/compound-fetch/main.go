// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the compound-fetch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/compound-fetch/internal/esearch"
	"github.com/pdiddy/compound-fetch/internal/fetch"
	"github.com/pdiddy/compound-fetch/internal/httputil"
	"github.com/pdiddy/compound-fetch/internal/pug"
	"github.com/pdiddy/compound-fetch/internal/secrets"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultIndexDir = "compounds"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the compound-fetch CLI.
var rootCmd = &cobra.Command{
	Use:   "compound-fetch",
	Short: "Batch-download compound structures from PubChem",
	Long: `compound-fetch retrieves compound structure records from PubChem in bulk.

It searches by exact mass range or by a list of compound IDs, has PubChem
prepare an SDF export of the hits, downloads and parses it, and builds a
CID to molecular formula index. Mass-range results can be cached on disk
and indexes can be recorded in a local SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./compound-fetch.yaml or ~/.config/compound-fetch/compound-fetch.yaml)")
	pf.String("secrets-dir", ".secrets", "directory of credential files (ncbi-api-key, ncbi-email)")
	pf.String("index-dir", defaultIndexDir, "directory holding the compound index database")
	pf.Duration("timeout", types.DefaultHTTPTimeout, "HTTP request timeout")
	pf.String("proxy", "", "HTTP proxy URL (default: honor HTTP_PROXY/HTTPS_PROXY)")
	pf.StringSlice("no-proxy", nil, "hosts that bypass --proxy")

	for key, flag := range map[string]string{
		"secrets_dir":    "secrets-dir",
		"index.dir":      "index-dir",
		"timeout":        "timeout",
		"proxy.url":      "proxy",
		"proxy.no_proxy": "no-proxy",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetDefault("secrets_dir", ".secrets")
	viper.SetDefault("index.dir", defaultIndexDir)
	viper.SetDefault("timeout", types.DefaultHTTPTimeout)
	viper.SetDefault("user_agent", types.DefaultUserAgent)
	viper.SetDefault("database", types.DefaultDatabase)
	viper.SetDefault("id_property", types.DefaultIDProperty)
	viper.SetDefault("create_date_cutoff", types.DefaultCreateDateCutoff)
	viper.SetDefault("poll.interval", types.DefaultPollInterval)
	viper.SetDefault("poll.multiplier", 1.0)
	viper.SetDefault("poll.timeout", types.DefaultPollTimeout)
	viper.SetDefault("max_attempts", types.DefaultMaxAttempts)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("compound-fetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "compound-fetch"))
		}
	}

	viper.SetEnvPrefix("COMPOUND_FETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// fetchConfig assembles the workflow settings from viper and the loaded
// secrets. Values set in config or env take precedence over secret files.
func fetchConfig() types.FetchConfig {
	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: viper.GetString("user_agent"),
			Proxy: types.ProxyConfig{
				URL:     viper.GetString("proxy.url"),
				NoProxy: viper.GetStringSlice("proxy.no_proxy"),
			},
		},
		Database:         viper.GetString("database"),
		IDProperty:       viper.GetString("id_property"),
		CreateDateCutoff: viper.GetString("create_date_cutoff"),
		Poll: types.PollConfig{
			Interval:    viper.GetDuration("poll.interval"),
			Multiplier:  viper.GetFloat64("poll.multiplier"),
			MaxInterval: viper.GetDuration("poll.max_interval"),
			Timeout:     viper.GetDuration("poll.timeout"),
		},
		MaxAttempts:   viper.GetInt("max_attempts"),
		TempDir:       viper.GetString("temp_dir"),
		StrictRecords: viper.GetBool("strict_records"),
		NCBIAPIKey:    viper.GetString("ncbi_api_key"),
		NCBIEmail:     viper.GetString("ncbi_email"),
	}
	secrets.Apply(loadedSecrets, &cfg)
	return cfg.WithDefaults()
}

func indexConfig() types.IndexConfig {
	return types.IndexConfig{Dir: viper.GetString("index.dir")}
}

// newFetcher wires the E-utilities and PUG clients into a Fetcher that
// reports progress on stderr.
func newFetcher() (*fetch.Fetcher, error) {
	cfg := fetchConfig()
	client, err := httputil.NewClient(cfg.HTTPConfig)
	if err != nil {
		return nil, err
	}
	return fetch.New(esearch.New(client, cfg), pug.New(client, cfg.HTTPConfig), cfg, os.Stderr), nil
}

// addWorkflowFlags registers the flags shared by the retrieval commands.
func addWorkflowFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Duration("poll-interval", types.DefaultPollInterval, "wait between export status checks")
	f.Duration("poll-timeout", types.DefaultPollTimeout, "give up on an export job after this long (0 = never)")
	f.Bool("strict", false, "fail on records without a compound ID instead of skipping them")
	f.String("temp-dir", "", "directory for the downloaded artifact (default: system temp dir)")
	f.Bool("index", false, "record the result in the compound index")
}

// bindWorkflowFlags binds the shared workflow flags of the running command.
// Binding happens at run time because several commands define the same flags.
func bindWorkflowFlags(cmd *cobra.Command) error {
	for key, flag := range map[string]string{
		"poll.interval":  "poll-interval",
		"poll.timeout":   "poll-timeout",
		"strict_records": "strict",
		"temp_dir":       "temp-dir",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
