package main

import (
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command
type rootOptions struct {
	company string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "esgpipeline",
		Short: "Turns Austrian accounting exports into ESRS E1 emissions and gap reports",
		Long: `esgpipeline ingests BMD ledger and supplier CSV exports, maps ledger accounts
to ESG categories, calculates spend-based Scope 1-3 emissions and writes an
ESRS E1 gap assessment workbook.

Configuration comes from the environment and an optional .env file.

Example:
  esgpipeline company create --name "Muster GmbH"
  esgpipeline run                  # ingest inbox, map, calculate, report
  esgpipeline serve                # HTTP API on SERVER_HOST:SERVER_PORT`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.company, "company", "", "company id (defaults to the only registered company)")

	root.AddCommand(
		newCompanyCmd(),
		newIngestCmd(opts),
		newMapCmd(opts),
		newEmissionsCmd(opts),
		newAssessCmd(opts),
		newReportCmd(opts),
		newRunCmd(opts),
		newServeCmd(),
		newWorkerCmd(),
		newResetCmd(),
	)

	return root
}

// withApp opens the application for the duration of fn
func withApp(fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
