package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stall/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove install receipts and cached package metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			receipts, _ := cmd.Flags().GetBool("receipts")
			cache, _ := cmd.Flags().GetBool("cache")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{
				Receipts: receipts,
				Cache:    cache,
			}

			switch {
			case all:
				opts.Receipts = true
				opts.Cache = true
			case !receipts && !cache:
				// Default behavior: forget install receipts
				opts.Receipts = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("receipts", "r", false, "Remove install receipts so every resource is reinstalled")
	cmd.Flags().BoolP("cache", "c", false, "Remove the NixHub package cache")
	cmd.Flags().BoolP("all", "a", false, "Remove receipts and caches")

	return cmd
}
