package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dshills/nnbench/benchmark"
	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/migration"
	"github.com/dshills/nnbench/persistence"
	"github.com/spf13/cobra"
)

func newReportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage stored benchmark reports",
	}
	cmd.AddCommand(
		newReportsListCmd(a),
		newReportsShowCmd(a),
		newReportsDeleteCmd(a),
		newReportsExportCmd(a),
		newReportsImportCmd(a),
		newReportsCopyCmd(a),
	)
	return cmd
}

func newReportsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store core.ReportStore) error {
				list, err := store.ListReports(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTARTED\tPOINTS\tLOCATORS")
				for _, s := range list {
					fmt.Fprintf(w, "%s\t%s\t%d\t%v\n",
						s.ID, s.StartedAt.Format(time.RFC3339), s.NumPoints, s.Locators)
				}
				return w.Flush()
			})
		},
	}
}

func newReportsShowCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store core.ReportStore) error {
				report, err := store.LoadReport(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				}
				benchmark.PrintReport(cmd.OutOrStdout(), &report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON report")
	return cmd
}

func newReportsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store core.ReportStore) error {
				if err := store.DeleteReport(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
				return nil
			})
		},
	}
}

func newReportsExportCmd(a *app) *cobra.Command {
	var (
		format string
		ids    []string
	)

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write stored reports to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store core.ReportStore) error {
				options := migration.DefaultExportOptions(args[0])
				options.Format = migration.ExportFormat(format)
				options.Reports = ids

				metadata, err := migration.NewExporter(store, a.logger).Export(cmd.Context(), options)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d reports to %s\n", len(metadata.Reports), args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(migration.ExportFormatJSON), "file format: json or yaml")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "report ids to export (default all)")
	return cmd
}

func newReportsImportCmd(a *app) *cobra.Command {
	var options migration.ImportOptions

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Load reports from an export directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store core.ReportStore) error {
				options.InputDirectory = args[0]
				result, err := migration.NewImporter(store, a.logger).Import(cmd.Context(), options)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d reports, skipped %d\n", len(result.Imported), len(result.Skipped))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&options.OverwriteData, "overwrite", false, "replace reports that already exist")
	cmd.Flags().BoolVar(&options.ValidateData, "validate", true, "reject reports with inconsistent results")
	cmd.Flags().StringSliceVar(&options.Reports, "id", nil, "report ids to import (default all)")
	return cmd
}

func newReportsCopyCmd(a *app) *cobra.Command {
	var (
		toType string
		toPath string
	)

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy every stored report into another store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := persistence.DefaultPersistenceConfig(persistence.PersistenceType(toType), toPath)
			dst, err := persistence.NewDefaultFactory().CreateStore(target)
			if err != nil {
				return err
			}
			defer dst.Close()

			return a.withStore(func(src core.ReportStore) error {
				copied, err := migration.Copy(cmd.Context(), src, dst)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied %d reports to %s %s\n", copied, toType, toPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&toType, "to-type", string(persistence.PersistenceBadger), "target store type: bolt or badger")
	cmd.Flags().StringVar(&toPath, "to-path", "", "target store path")
	_ = cmd.MarkFlagRequired("to-path")
	return cmd
}

// withStore opens the report store for the duration of fn
func (a *app) withStore(fn func(core.ReportStore) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
