package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stall/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [files...]",
		Short: "Download and install the declared resources",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := sources(cmd, args)
			if len(src.Files) == 0 && len(src.Catalog) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}

			accept, _ := cmd.Flags().GetStringSlice("accept")
			acceptAll, _ := cmd.Flags().GetBool("accept-all")
			jobs, _ := cmd.Flags().GetInt("jobs")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			retries, _ := cmd.Flags().GetInt("retries")
			force, _ := cmd.Flags().GetBool("force")
			downloadDir, _ := cmd.Flags().GetString("download-dir")
			outputMode, _ := cmd.Flags().GetString("output-mode")
			ci, _ := cmd.Flags().GetBool("ci")

			// If --ci is set, override output-mode to "linear"
			if ci {
				outputMode = "linear"
			}

			_, err := c.app.Build(cmd.Context(), app.BuildOptions{
				Sources:     src,
				Accept:      accept,
				AcceptAll:   acceptAll,
				Jobs:        jobs,
				Timeout:     timeout,
				Retries:     retries,
				Force:       force,
				DownloadDir: downloadDir,
				OutputMode:  outputMode,
			})
			return err
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().StringSlice("accept", nil, "Accept the license agreements of these resources")
	cmd.Flags().Bool("accept-all", false, "Accept every license agreement")
	cmd.Flags().IntP("jobs", "j", 0, "Resources processed in parallel (default: number of CPUs)")
	cmd.Flags().Duration("timeout", 0, "Limit each download and install step, e.g. 10m (0 disables)")
	cmd.Flags().Int("retries", 0, "Extra attempts for failed package manager installs")
	cmd.Flags().Bool("force", false, "Ignore install receipts and reinstall everything")
	cmd.Flags().String("download-dir", "", "Directory for downloaded artifacts (default: ~/Downloads)")
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, interactive, or linear")
	cmd.Flags().Bool("ci", false, "Never prompt and use linear output (shorthand for --output-mode=linear)")
	return cmd
}
