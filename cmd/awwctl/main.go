package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/byytelope/awwbot/pkg/config"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var (
		addr    string
		token   string
		timeout time.Duration
	)

	handler := func() *Handler {
		return &Handler{
			httpClient: &http.Client{Timeout: timeout},
			addr:       strings.TrimSuffix(addr, "/"),
			token:      token,
			out:        out,
			err:        errOut,
		}
	}

	root := &cobra.Command{
		Use:   "awwctl",
		Short: "Inspect and manage a running awwbotd",
		Long: `awwctl talks to awwbotd's Connect endpoints.

Example usage:
  awwctl stats                 # Usage counters and cache state
  awwctl health                # gRPC health of the daemon
  awwctl commands > cmds.json  # Slash command definitions for registration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&addr, "addr", envOr("AWWBOT_ADDR", "http://localhost:8787"), "daemon base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("ADMIN_TOKEN"), "admin bearer token for the stats RPC")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handler().Stats(cmd.Context())
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health [service]",
		Short: "Check daemon health",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := ""
			if len(args) == 1 {
				service = args[0]
			}
			return handler().Health(cmd.Context(), service)
		},
	}

	var configPath string
	commandsCmd := &cobra.Command{
		Use:   "commands",
		Short: "Print slash command definitions as JSON",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintln(errOut, "Config error:", err)
				return err
			}
			return handler().Commands(cfg)
		},
	}
	commandsCmd.Flags().StringVar(&configPath, "config", "", "path to the daemon's YAML config")

	root.AddCommand(statsCmd, healthCmd, commandsCmd)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
