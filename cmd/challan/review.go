package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/challan-processor/internal/core/validation"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/services/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Accept, reject or correct stored records",
}

var reviewAcceptCmd = &cobra.Command{
	Use:   "accept <record-id>",
	Short: "Mark a record as reviewed and correct",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		r, err := env.Review.AcceptByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", r.ID, r.ReviewStatus)
		return nil
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <record-id>",
	Short: "Exclude a record from exports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		r, err := env.Review.RejectByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", r.ID, r.ReviewStatus)
		return nil
	},
}

var reviewUpdateCmd = &cobra.Command{
	Use:   "update <record-id>",
	Short: "Correct fields of a record and re-validate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := updateFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		if u.IsEmpty() {
			return eris.New("nothing to update: pass at least one field flag")
		}

		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		r, res, err := env.Review.UpdateByID(cmd.Context(), args[0], u)
		if err != nil {
			return err
		}
		return printReviewed(cmd.OutOrStdout(), r, res)
	},
}

func init() {
	f := reviewUpdateCmd.Flags()
	f.String("tan", "", "TAN")
	f.String("deductor-name", "", "deductor name")
	f.Float64("total", 0, "total amount")
	f.String("cin", "", "CIN")
	f.String("challan-no", "", "challan serial number")
	f.String("date", "", "date of deposit (YYYY-MM-DD)")
	f.String("notes", "", "reviewer notes")
	f.String("status", "", "review status (PENDING_REVIEW, ACCEPTED, REJECTED, CORRECTED)")

	reviewCmd.AddCommand(reviewAcceptCmd, reviewRejectCmd, reviewUpdateCmd)
	rootCmd.AddCommand(reviewCmd)
}

// updateFromFlags builds a RecordUpdate from the flags the user actually set.
func updateFromFlags(fs *pflag.FlagSet) (review.RecordUpdate, error) {
	var u review.RecordUpdate
	str := func(name string, dst **string) {
		if !fs.Changed(name) {
			return
		}
		v, _ := fs.GetString(name)
		*dst = &v
	}
	str("tan", &u.TAN)
	str("deductor-name", &u.DeductorName)
	str("cin", &u.CIN)
	str("challan-no", &u.ChallanNo)
	str("date", &u.DateOfDeposit)
	str("notes", &u.Notes)
	str("status", &u.ReviewStatus)
	if fs.Changed("total") {
		v, err := fs.GetFloat64("total")
		if err != nil {
			return u, eris.Wrap(err, "parse --total")
		}
		u.TotalAmount = &v
	}
	return u, nil
}

func printReviewed(w io.Writer, r *entity.Record, res validation.Result) error {
	out, err := json.MarshalIndent(struct {
		Record *entity.Record     `json:"record"`
		Issues []validation.Issue `json:"issues"`
	}{r, res.Issues}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode record")
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
