package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/ingestion"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest one BMD CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				res, err := a.ingestionService().IngestFile(ctx, args[0], companyID)
				if err != nil {
					return err
				}
				printIngestResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "inbox",
		Short: "Ingest every CSV waiting in the inbox folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				results, err := a.ingestionService().IngestInbox(ctx, companyID)
				if err != nil {
					return err
				}
				printInboxResults(cmd.OutOrStdout(), results)
				return nil
			})
		},
	})

	return cmd
}

func printIngestResult(w io.Writer, res *ingestion.Result) {
	fmt.Fprintf(w, "%s: %s", res.FileName, res.Status)
	if res.FileKind != "" {
		fmt.Fprintf(w, " [%s, %s, delimiter %q]", res.FileKind, res.Encoding, res.Delimiter)
	}
	fmt.Fprintln(w)
	if res.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", res.Error)
		return
	}
	fmt.Fprintf(w, "  rows: %d total, %d valid, %d quarantined\n", res.RowsTotal, res.RowsValid, res.RowsQuarantined)
	for _, reason := range res.QuarantineReasons {
		fmt.Fprintf(w, "    - %s\n", reason)
	}
}

func printInboxResults(w io.Writer, results []ingestion.InboxResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "Inbox is empty.")
		return
	}
	for _, r := range results {
		if r.Result != nil {
			printIngestResult(w, r.Result)
		} else {
			fmt.Fprintf(w, "%s\n", filepath.Base(r.Path))
		}
		if r.Error != "" && (r.Result == nil || r.Result.Error == "") {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
		if r.MovedTo != "" {
			fmt.Fprintf(w, "  moved to %s\n", r.MovedTo)
		}
	}
}
