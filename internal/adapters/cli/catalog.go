package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/export/xlsx"
)

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List, export or watch catalog records",
	}
	cmd.AddCommand(newCatalogListCommand(a))
	cmd.AddCommand(newCatalogExportCommand(a))
	cmd.AddCommand(newCatalogWatchCommand(a))
	return cmd
}

func addFilterFlags(cmd *cobra.Command, filter *domain.CatalogFilter) {
	cmd.Flags().StringVar(&filter.Name, "name", "", "case-insensitive name filter")
	cmd.Flags().StringVar(&filter.Location, "location", "", "case-insensitive location filter")
}

func newCatalogListCommand(a *app) *cobra.Command {
	var (
		filter domain.CatalogFilter
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog records, newest first",
		Args:  cobra.NoArgs,
	}
	addFilterFlags(cmd, &filter)
	cmd.Flags().BoolVar(&asJSON, "json", false, "output records as JSON")

	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string, services *Services) error {
		records, err := services.Catalog.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("list catalog: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal records: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No records found.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tPREVIEW\tCREATED")
		for _, record := range records {
			preview := "-"
			if record.Previewable() {
				preview = "image"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				record.ID, record.Name, record.Location, preview, record.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	})
	return cmd
}

func newCatalogExportCommand(a *app) *cobra.Command {
	var (
		filter domain.CatalogFilter
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write catalog records to an XLSX workbook",
		Args:  cobra.NoArgs,
	}
	addFilterFlags(cmd, &filter)
	cmd.Flags().StringVarP(&output, "output", "o", "catalog.xlsx", "output file")

	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string, services *Services) error {
		records, err := services.Catalog.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("list catalog: %w", err)
		}

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		if err := xlsx.WriteCatalog(file, records); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", output, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), output)
		return nil
	})
	return cmd
}

func newCatalogWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print catalog records as they are persisted (requires NATS)",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string, services *Services) error {
		if services.Events == nil {
			return errors.New("catalog events are not configured; set NATS_URL")
		}
		out := cmd.OutOrStdout()
		err := services.Events.SubscribeRecords(cmd.Context(), func(_ context.Context, record domain.CatalogRecord) error {
			_, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", record.CreatedAt.Format(time.RFC3339), record.ID, record.Name, record.Location)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("watch catalog: %w", err)
		}
		return nil
	})
	return cmd
}
