package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fletescerealeros/fletes/config"
	"github.com/fletescerealeros/fletes/infra/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print registry counters from the configured store",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Backend != "sqlite" {
		return fmt.Errorf("stats requires the sqlite store backend")
	}
	st, err := storage.NewSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close store: %v\n", err)
		}
	}()

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "actors:           %d\n", stats.Actors)
	fmt.Fprintf(out, "  carriers:       %d\n", stats.Carriers)
	fmt.Fprintf(out, "  producers:      %d\n", stats.Producers)
	fmt.Fprintf(out, "active trips:     %d\n", stats.ActiveEvents)
	fmt.Fprintf(out, "  capacity:       %d\n", stats.CapacityReturns)
	fmt.Fprintf(out, "  demand:         %d\n", stats.DemandRequests)
	fmt.Fprintf(out, "proposals:        %d\n", stats.Proposals)
	fmt.Fprintf(out, "  accepted:       %d\n", stats.Accepted)
	return nil
}
