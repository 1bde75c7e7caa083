package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"griffon/src/datastore"
	"griffon/src/directors"
)

func queryCmd(a *app) *cobra.Command {
	var (
		className string
		where     string
		sortBy    string
		order     string
		limit     int
		offset    int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Load the rows of a data file and query them",
		Example: `  griffon query --config griffon.yaml --class Person --data people.yaml \
    --where 'age > 30 AND name != "bob"' --sort name --order desc --max 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("class", className); err != nil {
				return err
			}
			if err := requireFlag("data", a.args.DataFile); err != nil {
				return err
			}
			params := map[string]any{
				datastore.KeyOffset: offset,
				datastore.KeySort:   sortBy,
				datastore.KeyOrder:  order,
			}
			if cmd.Flags().Changed("max") {
				params[datastore.KeyMax] = limit
			}
			opts, err := datastore.ParseOptions(params)
			if err != nil {
				return err
			}

			rows, err := directors.LoadRows(a.args.DataFile)
			if err != nil {
				return err
			}
			saved, reports, err := a.manager.LoadDataset(className, rows)
			if err != nil {
				return err
			}
			if len(reports) > 0 {
				a.logger.Warnf("Skipped %d of %d rows that failed validation", len(reports), len(rows))
				printReports(a, reports)
			}
			a.logger.Debugw("Loaded rows", "dataset", className, "saved", saved)

			res, err := a.manager.Query(className, where, opts)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if a.args.SnapshotFile != "" {
				if err := a.manager.WriteSnapshot(a.args.SnapshotFile); err != nil {
					return err
				}
				a.logger.Infof("Wrote snapshot to %s", a.args.SnapshotFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&className, "class", "", "Class of the rows")
	cmd.Flags().StringVar(&a.args.DataFile, "data", "", "YAML file holding a list of rows")
	cmd.Flags().StringVar(&where, "where", "", "Where clause, e.g. 'age > 30 AND name LIKE \"al%\"'")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Property to sort by (default id)")
	cmd.Flags().StringVar(&order, "order", "asc", "Sort order, asc or desc")
	cmd.Flags().IntVar(&limit, "max", 0, "Maximum number of results (default all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")
	cmd.Flags().StringVar(&a.args.SnapshotFile, "snapshot", "", "Write a BSON snapshot of the datastore to this file")
	return cmd
}
