package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var processNoOCR bool

var processCmd = &cobra.Command{
	Use:   "process <file.pdf>",
	Short: "Extract and validate a single challan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, !processNoOCR)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Processor.ProcessFile(ctx, args[0])
		if res != nil {
			out, mErr := json.MarshalIndent(res, "", "  ")
			if mErr != nil {
				return eris.Wrap(mErr, "encode result")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		}
		return err
	},
}

func init() {
	processCmd.Flags().BoolVar(&processNoOCR, "no-ocr", false, "skip the OCR fallback")
	rootCmd.AddCommand(processCmd)
}
