package cli

import (
	"context"
	"fmt"

	"github.com/papersson/code-bot/internal/client/config"
	"github.com/spf13/cobra"
)

// newApp is a seam so command tests can run without a server.
var newApp = NewApp

// NewRootCommand builds the client command tree. Without a subcommand it
// starts the interactive shell.
//
// Flags are parsed by the config package from os.Args, so cobra flag
// parsing is disabled on every command.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:                "chatsync",
		Short:              "Local-first chat client",
		Long:               "Keeps chats in a local store and synchronises them with the server in the background.",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptToken(cfg, cmd); err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(ctx context.Context, a *App) error {
				return a.Run(ctx)
			})
		},
	}

	cmd.AddCommand(
		newOneShotCommand(cfg, "sync", "Run one sync pass and exit", (*App).Sync),
		newOneShotCommand(cfg, "status", "Show watermark and pending changes", (*App).Status),
		newOneShotCommand(cfg, "reap", "Remove tombstones the server has confirmed", (*App).Reap),
	)
	return cmd
}

func newOneShotCommand(cfg *config.Config, use, short string, run func(*App, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(ctx context.Context, a *App) error {
				a.out = cmd.OutOrStdout()
				return run(a, ctx)
			})
		},
	}
}

func withApp(ctx context.Context, cfg *config.Config, fn func(context.Context, *App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// promptToken asks for the access token on a terminal when none is configured.
func promptToken(cfg *config.Config, cmd *cobra.Command) error {
	if cfg.AccessToken != "" || !isTerminal() {
		return nil
	}
	tok, err := GetSecret("Access token (empty to stay offline)", cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	cfg.AccessToken = tok
	return nil
}
