package commands

import (
	"fmt"
	"strings"

	contextutils "returnsdesk/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the schema management commands
func DatabaseCommands(env *Env) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the returns desk.

Available commands:
  migrate   - Apply pending migrations
  reset     - Roll back every migration and re-apply them (drops all returns)`,
	}

	dbCmd.AddCommand(migrateCmd(env))
	dbCmd.AddCommand(resetCmd(env))
	return dbCmd
}

func migrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env.Logger.Info(ctx, "Running migrations", map[string]interface{}{
				"database": contextutils.RedactURL(env.Config.Database.URL),
			})
			if err := env.Migrator.RunMigrations(ctx, env.Config.Database.URL); err != nil {
				return err
			}
			fmt.Fprintln(env.Out, "Migrations applied.")
			return nil
		},
	}
}

func resetCmd(env *Env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the returns table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !yes {
				answer, err := env.prompt.line(fmt.Sprintf("This deletes every return in %s. Type 'yes' to continue",
					contextutils.RedactURL(env.Config.Database.URL)))
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "yes") {
					fmt.Fprintln(env.Out, "Aborted.")
					return nil
				}
			}

			if err := env.Migrator.MigrateDown(ctx, env.Config.Database.URL); err != nil {
				return err
			}
			if err := env.Migrator.RunMigrations(ctx, env.Config.Database.URL); err != nil {
				return err
			}
			fmt.Fprintln(env.Out, "Database reset.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
