package commands

import (
	"fmt"

	"returnsdesk/internal/version"

	"github.com/spf13/cobra"
)

func platformsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "Print the platform and reason picklists",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintln(env.Out, "Platformlar:")
			for _, p := range env.Config.Catalog.Platforms {
				fmt.Fprintf(env.Out, "  %s\n", p)
			}
			fmt.Fprintln(env.Out, "İade Sebepleri:")
			for _, r := range env.Config.Catalog.Reasons {
				fmt.Fprintf(env.Out, "  %s\n", r)
			}
			return nil
		},
	}
}

func versionCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(env.Out, version.Get("returnsctl").String())
		},
	}
}
