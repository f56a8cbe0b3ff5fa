package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quickbite/quickbite/client/internal/config"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	envFile    string
	serverURL  string
	userType   string
	userID     string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "quickbite:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "quickbite",
		Short:         "Campus pre-order client: live order board, ordering and kitchen status updates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to config file (defaults apply when empty)")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file with secrets; ignored when missing")
	pf.StringVar(&g.serverURL, "server", "", "server base URL, overrides client.server_url")
	pf.StringVar(&g.userType, "as", "", "identity type: admin or customer")
	pf.StringVar(&g.userID, "user", "", "customer user id")

	cmd.AddCommand(
		newWatchCmd(g),
		newPlaceCmd(g),
		newStatusCmd(g),
		newOrdersCmd(g),
		newStatsCmd(g),
	)
	return cmd
}

// setup loads secrets and config, applies flag overrides and installs the
// JSON logger. Logs go to stderr so command output stays readable.
func setup(g *globals) (*config.ClientConfig, *slog.LevelVar, error) {
	if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return nil, nil, err
		}
	}

	c := cfg.Client
	if g.serverURL != "" {
		c.ServerURL = g.serverURL
	}
	if g.userType != "" {
		c.Identity.UserType = g.userType
	}
	if g.userID != "" {
		c.Identity.UserID = g.userID
		if g.userType == "" {
			c.Identity.UserType = "customer"
		}
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	level := new(slog.LevelVar)
	level.Set(c.Level())
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return &c, level, nil
}
