// Command directoryctl is the operator CLI for the directory: it moderates
// submissions against the database and builds outbound links offline.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "directoryctl",
		Short:        "Operate the Look in Dharamshala directory",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			observability.InitLogger("lookindharamshala-ctl", os.Getenv("APP_ENV"))
		},
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "operation timeout")

	root.AddCommand(
		newPendingCmd(&timeout),
		newApproveCmd(&timeout),
		newRejectCmd(&timeout),
		newReconcileCmd(&timeout),
		newLinksCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return nil, err
	}
	return cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
