package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"speech-coach/config"
	"speech-coach/pkg/poller"
)

// analyze drives one recording through the server from the outside:
// submit, then poll until the feedback is ready, and print it.
func analyze(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [recording-id]",
		Short: "submit a recording and poll until feedback is ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordingID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid recording id %q: %w", args[0], err)
			}

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			ctx, cancel := signal.NotifyContext(logger.WithContext(context.Background()), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client := poller.New(poller.Options{
				BaseURL:  apiBaseURL(config),
				Interval: config.Poller.Interval,
				Timeout:  config.Poller.Timeout,
				OnProgress: func(status string) {
					logger.Info().Str("status", status).Msg("waiting for analysis")
				},
			})

			analysis, err := client.Analyze(ctx, recordingID)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func apiBaseURL(cfg *config.Config) string {
	return fmt.Sprintf("%s://%s:%s", cfg.App.Protocol, cfg.App.Host, cfg.Server.HttpPort)
}
