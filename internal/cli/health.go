package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check that the server answers its health endpoint.

With --wait the check is retried until it succeeds or the duration passes,
which is useful in scripts that start the server first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline := time.Now().Add(wait)

			for {
				result, err := checkHealth()
				if err == nil {
					NewOutput(cfg.Output).Print(result)
					return nil
				}
				if time.Now().After(deadline) {
					return err
				}

				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(250 * time.Millisecond):
				}
			}
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long")

	return cmd
}

func checkHealth() (HealthResult, error) {
	var result HealthResult

	start := time.Now()
	if err := client.Get("/api/v1/health", &result); err != nil {
		return result, err
	}
	if result.Status != "ok" {
		return result, fmt.Errorf("server reports status %q", result.Status)
	}

	result.Server = cfg.ServerURL
	result.LatencyMS = time.Since(start).Milliseconds()
	return result, nil
}
