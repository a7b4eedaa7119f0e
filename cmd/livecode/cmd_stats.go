package main

import (
	"context"
	"fmt"
	"sort"

	"livecode/internal/config"
	"livecode/internal/types"

	"github.com/spf13/cobra"
)

// statsCmd summarizes the analysis cache and traces
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show analysis cache and outcome statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var purgeCache bool

// configCmd writes the default configuration
var configCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write the default configuration to --config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&purgeCache, "purge-cache", false, "Delete all cached analyses")
}

func runStats(cmd *cobra.Command, args []string) error {
	st := openStore(cfg)
	if st == nil {
		return fmt.Errorf("store unavailable at %q", cfg.Store.DatabasePath)
	}
	defer st.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if purgeCache {
		n, err := st.PurgeCache(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "purged %d cached analyses\n", n)
	}

	cache, err := st.CacheStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d entries, %d hits\n", headerStyle.Render("cache:"), cache.Entries, cache.Hits)

	counts, err := st.OutcomeCounts(ctx)
	if err != nil {
		return err
	}
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	fmt.Fprintln(out, headerStyle.Render("outcomes:"))
	for _, o := range outcomes {
		fmt.Fprintf(out, "  %-12s %d\n", o, counts[types.Outcome(o)])
	}
	return nil
}
