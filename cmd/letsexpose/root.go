package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/letsexpose/letsexpose/pkg/app"
	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
)

func newRootCommand(stdout io.Writer) *cobra.Command {
	var opts app.Options

	cmd := &cobra.Command{
		Use:   "letsexpose [flags] <config-file> <" + strings.Join(app.Tasks, "|") + ">",
		Short: "Expose backend services through nginx with Let's Encrypt certificates",
		Long: `letsexpose reads a YAML file describing hosts, ports and proxied locations
and runs one of two tasks:

  certbot-init   request one certificate covering every host via certbot
  update-nginx   write the nginx server blocks for every host that has a
                 certificate, plus the basic-auth credential files

File system locations are taken from the ` + manager.SettingsEnvPrefix + `* environment variables.`,
		ValidArgs:     app.Tasks,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.PrintConfigTemplate || opts.ShowVersion {
				return nil
			}
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return common.NewConfigError("parse arguments", err.Error())
			}
			if !app.IsTask(args[1]) {
				return common.NewConfigError("parse arguments",
					fmt.Sprintf("argument task: invalid choice: %q (choose from %s)", args[1], strings.Join(app.Tasks, ", ")))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				opts.ConfigPath, opts.Task = args[0], args[1]
			}
			application := app.NewApplication(version, opts)
			application.SetOutput(cmd.OutOrStdout())
			return application.Run(cmd.Context())
		},
	}

	cmd.SetOut(stdout)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return common.NewConfigError("parse flags", err.Error())
	})

	flags := cmd.Flags()
	flags.StringVar(&opts.LogLevel, "log-level", "info", "logging level (debug|info|warn|error|quiet)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "logging format (go|emoji|color|ascii), defaults to emoji on a terminal")
	flags.BoolVar(&opts.PrintConfigTemplate, "print-config-template", false, "print a configuration template to stdout and exit")
	flags.BoolVar(&opts.ShowVersion, "version", false, "show version information and exit")

	return cmd
}
