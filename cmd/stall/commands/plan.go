package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stall/internal/app"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [files...]",
		Short: "Print the install order without installing anything",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := sources(cmd, args)
			if len(src.Files) == 0 && len(src.Catalog) == 0 {
				_ = cmd.Help()
				return nil
			}

			format, _ := cmd.Flags().GetString("format")
			return c.app.Plan(cmd.Context(), app.PlanOptions{
				Sources: src,
				Format:  format,
			})
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("format", "text", "Output format: text, dot, or mermaid")
	return cmd
}
