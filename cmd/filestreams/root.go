package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Move files onto a message bus and messages back into files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Debug {
				opts.LogLevel = "debug"
			}
			if err := validateFlags(opts); err != nil {
				return err
			}
			slog.SetDefault(setupLogger(cmd.ErrOrStderr(), opts.LogLevel, opts.LogFormat))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c",
		getEnv("FILESTREAMS_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: FILESTREAMS_CONFIG)")
	flags.StringVar(&opts.LogLevel, "log-level",
		getEnv("FILESTREAMS_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: FILESTREAMS_LOG_LEVEL)")
	flags.StringVar(&opts.LogFormat, "log-format",
		getEnv("FILESTREAMS_LOG_FORMAT", "json"),
		"Log format: json, text (env: FILESTREAMS_LOG_FORMAT)")
	flags.BoolVar(&opts.Debug, "debug",
		getEnvBool("FILESTREAMS_DEBUG", false),
		"Shorthand for --log-level=debug (env: FILESTREAMS_DEBUG)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return rootCmd
}
