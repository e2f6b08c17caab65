package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/repository"
)

var dbhealthTimeout time.Duration

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Check the record store and show the latest batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer repository.Close(db, zap.L())

		if err := repository.HealthCheck(ctx, db, dbhealthTimeout); err != nil {
			return eris.Wrap(err, "store health: FAIL")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "store health: OK (%s %s)\n", cfg.Store.Driver, cfg.Store.DSN)

		latest, err := repository.NewBatchRepository(db, zap.L()).Latest(ctx)
		switch {
		case errors.Is(err, common.ErrNotFound):
			fmt.Fprintln(out, "no batches yet")
			return nil
		case err != nil:
			return err
		}
		fmt.Fprintf(out, "latest batch %s: %d files, %d ok, %d failed, %d flagged (started %s)\n",
			latest.ID, latest.TotalFiles, latest.Successful, latest.Failed, latest.Flagged,
			latest.CreatedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	dbhealthCmd.Flags().DurationVar(&dbhealthTimeout, "timeout", time.Second, "health check timeout")
	rootCmd.AddCommand(dbhealthCmd)
}
