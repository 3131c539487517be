package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fletescerealeros/fletes/config"
	"github.com/fletescerealeros/fletes/infra/storage"
	"github.com/fletescerealeros/fletes/pkg/export"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump pending match proposals from the configured store",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Backend != "sqlite" {
		return fmt.Errorf("export requires the sqlite store backend")
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

	proposals, err := st.ListActiveMatchProposals(cmd.Context())
	if err != nil {
		return err
	}
	switch exportFormat {
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), proposals)
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), proposals)
	default:
		return fmt.Errorf("unknown format %s", exportFormat)
	}
}
