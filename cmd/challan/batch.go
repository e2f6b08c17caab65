package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/ingest"
	"github.com/joseph-ayodele/challan-processor/internal/services/export"
)

var (
	batchOut             string
	batchNoOCR           bool
	batchIncludeHidden   bool
	batchIncludeRejected bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file-or-dir>...",
	Short: "Process every challan PDF under the given paths as one batch",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		paths, stats, err := ingest.Collect(args, !batchIncludeHidden, zap.L())
		if err != nil {
			return err
		}
		zap.L().Info("collected inputs",
			zap.Int("scanned", stats.Scanned),
			zap.Int("matched", stats.Matched),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
		if len(paths) == 0 {
			return eris.New("no PDF files found")
		}

		env, err := initEnv(ctx, !batchNoOCR)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Processor.ProcessBatch(ctx, paths)
		if err != nil {
			return err
		}
		printBatch(cmd.OutOrStdout(), res)

		if batchOut == "" {
			return nil
		}
		opts := export.DefaultOptions()
		opts.ExcludeRejected = !batchIncludeRejected
		n, err := writeWorkbook(batchOut, res.Records, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", n, batchOut)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "write an XLSX workbook of the batch to this path")
	batchCmd.Flags().BoolVar(&batchNoOCR, "no-ocr", false, "skip the OCR fallback")
	batchCmd.Flags().BoolVar(&batchIncludeHidden, "include-hidden", false, "descend into hidden files and directories")
	batchCmd.Flags().BoolVar(&batchIncludeRejected, "include-rejected", false, "keep REJECTED records in the workbook")
	rootCmd.AddCommand(batchCmd)
}

func printBatch(w io.Writer, res *entity.BatchResult) {
	fmt.Fprintf(w, "batch %s: %d files, %d ok, %d failed, %d flagged\n",
		res.BatchID, res.TotalFiles, res.Successful, res.Failed, res.Flagged)
	for _, r := range res.Records {
		fmt.Fprintf(w, "  %-6s %.2f  %s  %s\n", r.ValidationFlag, r.RowConfidence, r.SourceFile, r.Notes)
	}
	failed := make([]string, 0, len(res.Errors))
	for path := range res.Errors {
		failed = append(failed, path)
	}
	sort.Strings(failed)
	for _, path := range failed {
		fmt.Fprintf(w, "  ERROR  %s: %s\n", path, res.Errors[path])
	}
}

func writeWorkbook(path string, records []*entity.Record, opts export.Options) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "create %s", path)
	}
	n, err := export.Write(records, f, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "close %s", path)
	}
	return n, err
}
