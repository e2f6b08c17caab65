package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/server"
)

var (
	serveAddr  string
	serveInbox string
	serveNoOCR bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch an inbox directory and process challans as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, !serveNoOCR)
		if err != nil {
			return err
		}
		defer env.Close()

		dcfg := server.ConfigFrom(cfg)
		if serveAddr != "" {
			dcfg.Addr = serveAddr
		}
		if serveInbox != "" {
			dcfg.InboxDir = serveInbox
		}

		zap.L().Info("starting challan daemon",
			zap.String("addr", dcfg.Addr),
			zap.String("inbox", dcfg.InboxDir),
			zap.Int("workers", dcfg.Workers),
		)
		return server.NewDaemon(dcfg, env.Processor, zap.L()).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC health listen address (overrides server.grpc_addr)")
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "directory to watch (overrides server.inbox_dir)")
	serveCmd.Flags().BoolVar(&serveNoOCR, "no-ocr", false, "skip the OCR fallback")
	rootCmd.AddCommand(serveCmd)
}
