package commands

import "github.com/spf13/cobra"

func (c *CLI) newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the ready-made resources for this platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.ListCatalog(cmd.Context())
		},
	}
}
