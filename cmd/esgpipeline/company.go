package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

func newCompanyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Register and list companies",
	}
	cmd.AddCommand(newCompanyCreateCmd(), newCompanyListCmd())
	return cmd
}

func newCompanyCreateCmd() *cobra.Command {
	var (
		name      string
		uid       string
		nace      string
		employees int
		bmdClient string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			company := &domain.Company{
				Name:          name,
				NaceCode:      strings.TrimSpace(nace),
				SizeEmployees: employees,
				BMDClientID:   strings.TrimSpace(bmdClient),
			}
			if uid = strings.TrimSpace(uid); uid != "" {
				company.UIDVat = &uid
			}

			return withApp(func(a *app) error {
				if err := a.companies.Create(cmd.Context(), company); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Company created: %s (%s)\n", company.Name, company.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "company name")
	cmd.Flags().StringVar(&uid, "uid", "", "UID / VAT number (ATU...)")
	cmd.Flags().StringVar(&nace, "nace", "", "NACE code")
	cmd.Flags().IntVar(&employees, "employees", 0, "number of employees")
	cmd.Flags().StringVar(&bmdClient, "bmd-client", "", "BMD client id")
	return cmd
}

func newCompanyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				companies, err := a.companies.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(companies) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No companies registered.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tUID\tNACE\tSTATUS")
				for _, c := range companies {
					uid := ""
					if c.UIDVat != nil {
						uid = *c.UIDVat
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, uid, c.NaceCode, c.Status)
				}
				return w.Flush()
			})
		},
	}
}
