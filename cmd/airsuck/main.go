package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"airsuck/internal/app"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := app.DefaultConfig()
	var (
		configPath string
		envFile    string
	)

	rootCmd := &cobra.Command{
		Use:   "airsuck",
		Short: "SSR/ADS-B and AIS decoder",
		Long: `Decodes Mode A/C, Mode S and ADS-B frames and AIS NMEA sentences into
JSON records, tracks aircraft state and fans records out to the configured sinks.

Input is read from a file or stdin in dump1090 AVR text, Beast binary or
NMEA 0183 format. Settings are layered: defaults, then the YAML config file,
then AIRSUCK_* environment variables (optionally from an .env file), then flags.

Example usage:
  nc localhost 30002 | airsuck --format avr --receiver 52.3,4.76
  nc localhost 30005 | airsuck --format beast --nats nats://localhost:4222
  airsuck --format nmea --input ais.nmea --record-log --log-dir ./logs`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ShowVersion {
				app.ShowVersion(cmd.OutOrStdout())
				return nil
			}

			cfg := app.DefaultConfig()
			if configPath != "" {
				if err := cfg.LoadConfigFile(configPath); err != nil {
					return err
				}
			}
			if err := cfg.ApplyEnv(envFile); err != nil {
				return err
			}
			if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
				return err
			}

			application := app.NewApplication(cfg)
			return application.Start(cmd.Context())
		},
	}

	flags.BindFlags(rootCmd.Flags())
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file with AIRSUCK_* variables")
	rootCmd.Flags().BoolVar(&flags.ShowVersion, "version", false, "Show version information")

	return rootCmd
}
