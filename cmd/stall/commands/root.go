// Package commands implements the CLI commands for stall.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/stall/internal/app"
	"go.trai.ch/stall/internal/build"
	"go.trai.ch/stall/internal/core/domain"
)

// CLI represents the command line interface for stall.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, opts app.BuildOptions) (*domain.OutcomeReport, error)
	Plan(ctx context.Context, opts app.PlanOptions) error
	ListCatalog(ctx context.Context) error
	Clean(ctx context.Context, opts app.CleanOptions) error
	SetJSONLogs(enable bool)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "stall",
		Short:         "Declare installable resources and install them in dependency order",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			jsonLogs, _ := cmd.Flags().GetBool("json-logs")
			a.SetJSONLogs(jsonLogs)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().Bool("json-logs", false, "Write log messages as JSON")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newCatalogCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// addSourceFlags registers the flags that select which resources a command reads.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("file", "f", nil, "Resource file to read (YAML or .hcl), may be repeated")
	cmd.Flags().StringSlice("catalog", nil, "Catalog entries to include, comma separated")
}

// sources combines positional file arguments with the source flags.
func sources(cmd *cobra.Command, args []string) app.Sources {
	files, _ := cmd.Flags().GetStringArray("file")
	catalog, _ := cmd.Flags().GetStringSlice("catalog")
	return app.Sources{
		Files:   append(files, args...),
		Catalog: catalog,
	}
}
