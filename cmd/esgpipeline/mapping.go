package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
)

func newMapCmd(opts *rootOptions) *cobra.Command {
	var (
		mode        string
		mappingFile string
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map unmapped ledger accounts to ESG categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mapOpts, err := mappingOptions(cmd, mode)
			if err != nil {
				return err
			}
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				svc, err := a.classificationService(mappingFile)
				if err != nil {
					return err
				}
				summary, err := svc.MapAccounts(ctx, companyID, mapOpts)
				if err != nil {
					return err
				}
				printMappingSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(classification.ModeAuto), "mapping mode: auto or interactive")
	cmd.Flags().StringVar(&mappingFile, "file", "", "YAML mapping rules (overrides MAPPING_FILE)")

	cmd.AddCommand(&cobra.Command{
		Use:   "review",
		Short: "List mappings waiting for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				svc, err := a.classificationService(mappingFile)
				if err != nil {
					return err
				}
				queue, err := svc.ReviewQueue(ctx, companyID)
				if err != nil {
					return err
				}
				if len(queue) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to review.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ACCOUNT\tNAME\tSUGGESTED\tCONFIDENCE\tSOURCE")
				for _, m := range queue {
					fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", m.AccountNumber, m.AccountName, m.Category, m.ConfidenceScore, m.Source)
				}
				return w.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <account> <category>",
		Short: "Confirm or override the category of one account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				svc, err := a.classificationService("")
				if err != nil {
					return err
				}
				m, err := svc.ConfirmMapping(ctx, companyID, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s mapped to %s\n", m.AccountNumber, m.Category)
				return nil
			})
		},
	})

	return cmd
}

// mappingOptions turns the --mode flag into service options. "skip" is only
// meaningful for run.
func mappingOptions(cmd *cobra.Command, mode string) (classification.Options, error) {
	switch classification.Mode(mode) {
	case classification.ModeAuto:
		return classification.Options{Mode: classification.ModeAuto}, nil
	case classification.ModeInteractive:
		return classification.Options{
			Mode:      classification.ModeInteractive,
			Confirmer: newPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()),
		}, nil
	default:
		return classification.Options{}, fmt.Errorf("unknown mapping mode %q", mode)
	}
}

func printMappingSummary(w io.Writer, s *classification.Summary) {
	if s.Mapped == 0 {
		fmt.Fprintln(w, "All accounts are already mapped.")
		return
	}
	fmt.Fprintf(w, "Mapped %d account(s): %d auto-accepted, %d confirmed, %d need review\n",
		s.Mapped, s.AutoAccepted, s.HumanConfirmed, len(s.NeedsReview))
	for _, o := range s.NeedsReview {
		fmt.Fprintf(w, "  review %s: %s (%.2f, %s)\n", o.AccountNumber, o.Category, o.Confidence, o.Source)
	}
}
