package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/config"
	"lstmcpipe/internal/engine"
	"lstmcpipe/internal/pipeline"
	"lstmcpipe/internal/schema"
	"lstmcpipe/internal/transport"
	"lstmcpipe/internal/validate"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yml>",
		Short: "Check a pipeline configuration and report the first problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.LoadDocument(args[0])
			if err != nil {
				return err
			}
			if a.remote != "" {
				return remoteCall(cmd, a.remote, func(c *transport.Client, ctx context.Context) (map[string]any, error) {
					return c.Validate(ctx, raw)
				})
			}
			v, err := validate.Validate(raw)
			if err != nil {
				return err
			}
			a.log.Debug("configuration deemed valid", "path", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (workflow_kind=%s, prod_type=%s)\n",
				args[0], v.WorkflowKind(), v.ProductionType())
			return nil
		},
	}
}

func newCompleteCmd(a *app) *cobra.Command {
	var (
		sinks    []string
		lstchain string
		ctapipe  string
	)
	cmd := &cobra.Command{
		Use:   "complete <config.yml>",
		Short: "Validate a configuration and emit it with run identifier and batch settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.remote != "" {
				for _, name := range []string{"sink", "lstchain-version", "ctapipe-version"} {
					if cmd.Flags().Changed(name) {
						return fmt.Errorf("--%s applies to local completion and cannot be combined with --remote", name)
					}
				}
			}
			raw, err := config.LoadDocument(args[0])
			if err != nil {
				return err
			}
			if a.remote != "" {
				return remoteCall(cmd, a.remote, func(c *transport.Client, ctx context.Context) (map[string]any, error) {
					return c.Complete(ctx, raw)
				})
			}

			s := a.settings
			if len(sinks) > 0 {
				s.Sinks = sinks
			}
			if s.Toolchains == nil {
				s.Toolchains = map[string]string{}
			}
			if lstchain != "" {
				s.Toolchains[string(schema.ToolchainLSTChain)] = lstchain
			}
			if ctapipe != "" {
				s.Toolchains[string(schema.ToolchainCTAPipe)] = ctapipe
			}
			s.Source = config.SourceSettings{}

			c := complete.New(s.Versions(), complete.WithLogger(a.log))
			r, err := pipeline.Compile(s, c, pipeline.Options{Stdout: cmd.OutOrStdout(), Logger: a.log})
			if err != nil {
				return err
			}
			defer r.Close()
			_, err = r.Process(cmd.Context(), raw)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&sinks, "sink", nil, "sinks to deliver to (stdout, file, kafka); overrides settings")
	cmd.Flags().StringVar(&lstchain, "lstchain-version", "", "pin the lstchain version instead of asking the interpreter")
	cmd.Flags().StringVar(&ctapipe, "ctapipe-version", "", "pin the ctapipe version instead of asking the interpreter")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the RPC service, metrics endpoint and configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := engine.Bootstrap(cmd.Context(), a.settings, engine.Options{
				Logger: a.log,
				Stdout: cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			return e.Run(cmd.Context())
		},
	}
}

// remoteCall runs call against a serve instance and prints its reply.
func remoteCall(cmd *cobra.Command, addr string, call func(*transport.Client, context.Context) (map[string]any, error)) error {
	c, err := transport.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()
	out, err := call(c, cmd.Context())
	if out == nil {
		return err
	}
	if werr := config.WriteDocument(cmd.OutOrStdout(), out); werr != nil {
		return werr
	}
	return err
}
