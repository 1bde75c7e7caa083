package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"griffon/src/directors"
)

func validateCmd(a *app) *cobra.Command {
	var className string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the rows of a data file against the constraints of a class",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("class", className); err != nil {
				return err
			}
			if err := requireFlag("data", a.args.DataFile); err != nil {
				return err
			}
			rows, err := directors.LoadRows(a.args.DataFile)
			if err != nil {
				return err
			}
			reports, err := a.manager.ValidateRows(className, rows)
			if err != nil {
				return err
			}
			printReports(a, reports)
			if len(reports) > 0 {
				return fmt.Errorf("%d of %d rows failed validation", len(reports), len(rows))
			}
			fmt.Fprintf(a.out, "%d rows of %s are valid\n", len(rows), className)
			return nil
		},
	}
	cmd.Flags().StringVar(&className, "class", "", "Class to validate the rows as")
	cmd.Flags().StringVar(&a.args.DataFile, "data", "", "YAML file holding a list of rows")
	return cmd
}

func printReports(a *app, reports []directors.RowReport) {
	for _, r := range reports {
		for _, f := range r.Fields {
			fmt.Fprintf(a.out, "row %d: %s: %s\n", r.Row, f.Field, f.Message)
		}
	}
}
