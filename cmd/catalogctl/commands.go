package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nulzo/model-catalog/internal/app"
	"github.com/nulzo/model-catalog/internal/cli"
	"github.com/nulzo/model-catalog/internal/config"
	"github.com/nulzo/model-catalog/internal/platform/logger"
	"github.com/spf13/cobra"
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("command failed")

// env is the state shared by every subcommand.
type env struct {
	out     io.Writer
	errOut  io.Writer
	app     *app.App
	verbose bool
	noColor bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	e := &env{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Manage the model catalog: backups, providers and discovery",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if e.noColor {
				cli.SetEnabled(false)
			}
			return e.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.app == nil {
				return nil
			}
			return e.app.Close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Log at debug level")
	root.PersistentFlags().BoolVar(&e.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newExportCmd(e),
		newImportCmd(e),
		newProvidersCmd(e),
		newModelsCmd(e),
		newDiscoverCmd(e),
		newClearCmd(e),
	)
	return root
}

func (e *env) open(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		e.fail("%v", err)
		return errReported
	}

	level := "warn"
	if e.verbose {
		level = "debug"
	}
	l, _, err := logger.New(logger.Config{
		Level:       level,
		Format:      "console",
		EnableColor: cli.Enabled(),
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		e.fail("%v", err)
		return errReported
	}

	a, err := app.Bootstrap(cmd.Context(), cfg, l)
	if err != nil {
		e.fail("%v", err)
		return errReported
	}
	e.app = a
	return nil
}

func (e *env) ok(format string, args ...any) {
	fmt.Fprintf(e.errOut, "%s %s\n", cli.CheckMark(), fmt.Sprintf(format, args...))
}

func (e *env) warn(format string, args ...any) {
	fmt.Fprintf(e.errOut, "  %s %s\n", cli.WarnMark(), cli.Style(fmt.Sprintf(format, args...), cli.Yellow))
}

func (e *env) fail(format string, args ...any) {
	fmt.Fprintf(e.errOut, "%s %s\n", cli.CrossMark(), fmt.Sprintf(format, args...))
}
