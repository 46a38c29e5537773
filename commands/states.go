package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"potato-prices/config"
	"potato-prices/services"
)

var statesResolve []string

var statesCmd = &cobra.Command{
	Use:   "states [--resolve <name>...]",
	Short: "List the state catalog, or show what free-text names resolve to.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolver, err := newResolver(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(statesResolve) == 0 {
			catalog, err := config.LoadCatalog(cfg)
			if err != nil {
				return err
			}
			rs := services.NewReportService(logger)
			rs.PrintStates(out, resolver.Catalog(), services.NameCounts(resolver))
			rs.PrintAliases(out, catalog.Aliases)
			return nil
		}

		for _, name := range statesResolve {
			st, ok := resolver.Resolve(name)
			switch {
			case !ok:
				fmt.Fprintf(out, "%-30s -> (unresolved)\n", name)
			case !resolver.InCatalog(st):
				fmt.Fprintf(out, "%-30s -> %s (not in catalog)\n", name, st)
			default:
				fmt.Fprintf(out, "%-30s -> %s\n", name, st)
			}
		}
		return nil
	},
}

func init() {
	statesCmd.Flags().StringArrayVar(&statesResolve, "resolve", nil, "Resolve a location or state name (repeatable).")
	rootCmd.AddCommand(statesCmd)
}
