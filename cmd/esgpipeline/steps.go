package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/emissions"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/gapassessment"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/pipeline"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/reporting"
)

func newEmissionsCmd(opts *rootOptions) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "emissions",
		Short: "Calculate Scope 1-3 emissions from mapped spend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				summary, err := a.emissionsService().Calculate(ctx, companyID, period)
				if err != nil {
					return err
				}
				printEmissions(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", `date prefix to calculate, e.g. "2024" or "2024-03" (default: derived)`)
	return cmd
}

func newAssessCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assess",
		Short: "Assess ESRS E1 disclosure readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				assessments, err := a.assessor().Assess(ctx, companyID)
				if err != nil {
					return err
				}
				printAssessments(cmd.OutOrStdout(), assessments)
				return nil
			})
		},
	}
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Generate the ESRS E1 gap report workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				report, err := a.reportingService().Generate(ctx, companyID, a.storage.OutputDir())
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		mode        string
		mappingFile string
		period      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingest, map, emissions and report in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mapOpts := classification.Options{Mode: pipeline.ModeSkip}
			if mode != string(pipeline.ModeSkip) {
				var err error
				if mapOpts, err = mappingOptions(cmd, mode); err != nil {
					return err
				}
			}

			return withApp(func(a *app) error {
				ctx := cmd.Context()
				companyID, err := a.resolveCompany(ctx, opts.company)
				if err != nil {
					return err
				}
				mapper, err := a.classificationService(mappingFile)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				res, err := a.runner(mapper).Run(ctx, companyID, pipeline.Options{
					Period:    period,
					Mapping:   mapOpts,
					OutputDir: a.storage.OutputDir(),
				})
				if res != nil {
					printInboxResults(out, res.Inbox)
					if res.Mapping != nil {
						printMappingSummary(out, res.Mapping)
					}
					if res.Emissions != nil {
						printEmissions(out, res.Emissions)
					}
				}
				if err != nil {
					return err
				}
				printReport(out, res.Report)
				fmt.Fprintln(out, "The report is a draft and needs human review.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(classification.ModeAuto), "mapping mode: auto, interactive or skip")
	cmd.Flags().StringVar(&mappingFile, "file", "", "YAML mapping rules (overrides MAPPING_FILE)")
	cmd.Flags().StringVar(&period, "period", "", "date prefix to calculate (default: derived)")
	return cmd
}

func printEmissions(w io.Writer, s *emissions.Summary) {
	fmt.Fprintf(w, "Emissions %s: Scope 1 %.2f, Scope 2 %.2f, Scope 3 %.2f, total %.2f tCO2e\n",
		s.Period, s.Scope1TCO2e, s.Scope2TCO2e, s.Scope3TCO2e, s.TotalTCO2e)
	for _, d := range s.Details {
		fmt.Fprintf(w, "  S%d %-20s %12.2f EUR  %10.4f tCO2e\n", d.Scope, d.Category, d.SpendEUR, d.EmissionsTCO2e)
	}
}

func printAssessments(w io.Writer, assessments []gapassessment.Assessment) {
	for _, a := range assessments {
		fmt.Fprintf(w, "%-6s %-8s %s\n", a.Ref, a.Status, a.Title)
		if a.Notes != "" {
			fmt.Fprintf(w, "       %s\n", a.Notes)
		}
	}
	met, partial, gap := gapassessment.Count(assessments)
	fmt.Fprintf(w, "Met %d, partial %d, gap %d\n", met, partial, gap)
}

func printReport(w io.Writer, r *reporting.Report) {
	fmt.Fprintf(w, "Report v%d (%s) written to %s\n", r.Version, r.Period, r.Path)
	fmt.Fprintf(w, "  met %d, partial %d, gap %d\n", r.Met, r.Partial, r.Gap)
}
