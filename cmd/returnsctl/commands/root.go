// Package commands provides the returnsctl subcommands
package commands

import (
	"context"
	"io"
	"os"
	"strings"

	"returnsdesk/internal/config"
	"returnsdesk/internal/models"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/serviceinterfaces"
	contextutils "returnsdesk/internal/utils"

	"github.com/spf13/cobra"
)

// PasswordEnv holds the password for non-interactive use
const PasswordEnv = "RETURNS_PASSWORD"

// UserEnv is the default for --user
const UserEnv = "RETURNS_USER"

// Migrator applies or rolls back the schema; database.Manager satisfies it
type Migrator interface {
	RunMigrations(ctx context.Context, databaseURL string) error
	MigrateDown(ctx context.Context, databaseURL string) error
}

// Env carries the resources commands share. Service is opened lazily so that
// commands which never touch the database stay usable without one.
type Env struct {
	Config       *config.Config
	Logger       *observability.Logger
	Service      func(ctx context.Context) (serviceinterfaces.ReturnService, error)
	Migrator     Migrator
	In           io.Reader
	Out          io.Writer
	ReadPassword func() (string, error)

	user   string
	prompt *prompter
}

// NewRootCommand builds the returnsctl command tree
func NewRootCommand(env *Env) *cobra.Command {
	if env.In == nil {
		env.In = os.Stdin
	}
	if env.Out == nil {
		env.Out = os.Stdout
	}
	env.prompt = newPrompter(env.In, env.Out)

	rootCmd := &cobra.Command{
		Use:   "returnsctl",
		Short: "Returns desk command line",
		Long: `Returns desk command line

Lists, creates and decides product returns against the same database and
image store as the web server. Every command except "platforms" and "version"
logs in as --user; the password comes from $` + PasswordEnv + ` or a prompt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(env.In)
	rootCmd.SetOut(env.Out)
	rootCmd.PersistentFlags().StringVarP(&env.user, "user", "u", os.Getenv(UserEnv), "username to act as")

	rootCmd.AddCommand(listCmd(env))
	rootCmd.AddCommand(addCmd(env))
	rootCmd.AddCommand(decisionCmd(env, "approve", models.StatusApproved))
	rootCmd.AddCommand(decisionCmd(env, "reject", models.StatusRejected))
	rootCmd.AddCommand(exportCmd(env))
	rootCmd.AddCommand(platformsCmd(env))
	rootCmd.AddCommand(versionCmd(env))
	rootCmd.AddCommand(DatabaseCommands(env))

	return rootCmd
}

// login opens the service and authenticates --user
func (env *Env) login(ctx context.Context) (serviceinterfaces.ReturnService, models.Principal, error) {
	username := strings.TrimSpace(env.user)
	if username == "" {
		var err error
		if username, err = env.prompt.line("Kullanıcı Adı"); err != nil {
			return nil, models.Principal{}, err
		}
	}
	if username == "" {
		return nil, models.Principal{}, contextutils.ErrorWithContextf("username is required (--user or $%s)", UserEnv)
	}

	password := os.Getenv(PasswordEnv)
	if password == "" && env.ReadPassword != nil {
		var err error
		if password, err = env.ReadPassword(); err != nil {
			return nil, models.Principal{}, contextutils.WrapError(err, "failed to read password")
		}
	}

	svc, err := env.Service(ctx)
	if err != nil {
		return nil, models.Principal{}, err
	}

	principal, err := svc.Authenticate(ctx, username, password)
	if err != nil {
		return nil, models.Principal{}, err
	}
	env.Logger.Debug(ctx, "CLI login", map[string]interface{}{"username": principal.Username, "role": string(principal.Role)})
	return svc, principal, nil
}
