package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"lstmcpipe/internal/config"
	"lstmcpipe/internal/logging"
)

// app carries what the persistent flags resolve to.
type app struct {
	settingsPath string
	logLevel     string
	remote       string

	settings config.Settings
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "lstmcpipe",
		Short: "Validate and complete LST analysis pipeline configurations",
		Long: `Validate a pipeline configuration document and complete it with the
run identifier and batch settings the workflow manager needs.

Examples:
  lstmcpipe validate lstmcpipe_config.yml
  lstmcpipe complete lstmcpipe_config.yml --sink file
  lstmcpipe serve --settings settings.yml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.LoadSettings(a.settingsPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				s.Log.Level = a.logLevel
			}
			a.settings = s
			logging.Configure(logging.Options{Level: s.Log.Level, JSON: s.Log.JSON, Output: cmd.ErrOrStderr()})
			a.log = logging.L()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "tool settings file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.remote, "remote", "", "address of a running lstmcpipe serve instance")

	root.AddCommand(newValidateCmd(a), newCompleteCmd(a), newServeCmd(a))
	return root
}
