// Package main provides returnsctl, the command-line front-end of the returns desk.
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"returnsdesk/cmd/returnsctl/commands"
	"returnsdesk/internal/config"
	"returnsdesk/internal/database"
	"returnsdesk/internal/di"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/serviceinterfaces"
	contextutils "returnsdesk/internal/utils"

	"golang.org/x/term"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Keep CLI output clean and avoid exporter connection errors
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "returnsctl", cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	container := di.NewServiceContainer(cfg, logger, nil)
	initialized := false
	defer func() {
		if initialized {
			if err := container.Shutdown(ctx); err != nil {
				logger.Warn(ctx, "Failed to release resources", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	env := &commands.Env{
		Config:   cfg,
		Logger:   logger,
		Migrator: database.NewManager(logger),
		Service: func(ctx context.Context) (serviceinterfaces.ReturnService, error) {
			if !initialized {
				if err := container.Initialize(ctx); err != nil {
					return nil, err
				}
				initialized = true
			}
			return container.GetReturnService()
		},
		ReadPassword: readPassword,
	}

	if err := commands.NewRootCommand(env).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if initialized {
			_ = container.Shutdown(ctx)
		}
		os.Exit(1)
	}
}

// readPassword prompts on the terminal without echo
func readPassword() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", contextutils.ErrorWithContextf("no terminal to prompt for a password; set $%s", commands.PasswordEnv)
	}
	fmt.Fprint(os.Stderr, "Şifre: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
