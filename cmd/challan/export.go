package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/challan-processor/internal/services/export"
)

var (
	exportBatch           string
	exportOut             string
	exportAll             bool
	exportIncludeRejected bool
	exportNoSummary       bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored records to an XLSX workbook",
	Long:  "Exports the records of one batch (the latest batch by default, or every stored record with --all) to an XLSX workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if exportAll && exportBatch != "" {
			return eris.New("--all and --batch are mutually exclusive")
		}

		env, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		batchID := exportBatch
		if !exportAll && batchID == "" {
			latest, err := env.Batches.Latest(ctx)
			if err != nil {
				return eris.Wrap(err, "find latest batch")
			}
			batchID = latest.ID
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", exportOut)
		}
		opts := export.DefaultOptions()
		opts.IncludeSummary = !exportNoSummary
		opts.ExcludeRejected = !exportIncludeRejected

		n, err := env.Export.ExportBatchXLSX(ctx, batchID, f, opts)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = eris.Wrapf(cerr, "close %s", exportOut)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", n, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportBatch, "batch", "", "batch ID to export (default: latest batch)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "challans.xlsx", "output workbook path")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every stored record")
	exportCmd.Flags().BoolVar(&exportIncludeRejected, "include-rejected", false, "keep REJECTED records")
	exportCmd.Flags().BoolVar(&exportNoSummary, "no-summary", false, "omit the Summary sheet")
	rootCmd.AddCommand(exportCmd)
}
