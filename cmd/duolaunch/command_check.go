package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/giantswarm/duolaunch/internal/config"
	"github.com/giantswarm/duolaunch/internal/envcheck"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and environment without starting anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return check(cmd.Context(), flags.configPath, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// check loads the configuration and runs the environment checks. It never
// writes the log file.
func check(ctx context.Context, configPath string, out, console io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	res := cfg.Resolve()

	logger, closer, err := newLogger(cfg, "", console)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck // no file to close

	err = envcheck.New(envcheck.Params{
		Service:    res.Service,
		Foreground: res.Foreground,
		ProbeHost:  res.ProbeHost,
		WorkDir:    cfg.BaseDir(),
		Logger:     logger,
	}).Validate(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "configuration %s is valid\n", configPath)
	fmt.Fprintf(out, "service:    %s (port %d)\n", res.Service.Path, res.Service.Port)
	fmt.Fprintf(out, "foreground: %s\n", res.Foreground.Path)
	return nil
}
