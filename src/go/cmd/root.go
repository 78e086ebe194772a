package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/command"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/config"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/flags"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/logging"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/transient"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/types"
)

// App is one findgrep invocation rooted at Dir
type App struct {
	Dir   string
	Stdio command.Stdio

	cfg    *types.Config
	binder *flags.Binder
	ran    bool

	printCmd       bool
	printTransient bool
	printConfig    bool
	watch          bool
	gzip           bool
	verbose        bool
	logLevel       string
}

// Execute runs findgrep in the current directory with the process's streams
func Execute(ctx context.Context, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("failed to get working directory: %w", err)}
	}

	app := &App{Dir: wd, Stdio: command.StdStreams()}
	return app.Execute(ctx, args)
}

// Execute resolves the configuration for a.Dir, parses args against it and
// runs the selected mode. Failures come back as *ExitError.
func (a *App) Execute(ctx context.Context, args []string) error {
	logging.Setup(earlyLevel(args), a.stderr())

	cfg, err := config.Resolve(a.Dir)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	a.cfg = cfg

	root, err := a.newRootCmd()
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	root.SetArgs(args)

	err = root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if !a.ran {
		// cobra and pflag reject the invocation before RunE
		return &ExitError{Code: ExitUsage, Err: err}
	}
	return &ExitError{Code: ExitFailure, Err: err}
}

func (a *App) newRootCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "findgrep [flags] [pattern...]",
		Short: "Search a source tree with find and grep",
		Long: `findgrep assembles "find . ... -exec grep ... {} +" from a set of file filters
and grep options and runs it. The built-in options are refined by .findgrep.yml
files found between the filesystem root and the current directory, the nearest
file winning. Every option becomes a flag.`,
		Example: `  findgrep TODO
  findgrep -g -i 'func main'
  findgrep --no-exclude-tests -B 2 -A 3 pattern
  findgrep --print-cmd -w error`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.run,
	}
	cmd.SetOut(a.stdout())
	cmd.SetErr(a.stderr())

	fs := cmd.Flags()
	fs.SortFlags = false
	fs.BoolVar(&a.printCmd, "print-cmd", false, "Print the assembled command instead of running it")
	fs.BoolVar(&a.printTransient, "print-elisp-transient", false, "Print the options as an Emacs transient group")
	fs.BoolVar(&a.printConfig, "print-config", false, "Print the resolved configuration as YAML")
	fs.BoolVarP(&a.watch, "watch", "W", false, "Rerun the search whenever a matching file changes")
	fs.BoolVarP(&a.gzip, "gzip", "z", false, "Search gzip-compressed files with zgrep")
	fs.BoolVar(&a.verbose, "verbose", false, "Log the assembled command and the override files used")
	fs.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	binder, err := flags.Bind(cmd, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a.binder = binder

	return cmd, nil
}

func (a *App) run(cmd *cobra.Command, terms []string) error {
	a.ran = true

	if err := a.binder.Resolve(cmd.Flags()); err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	out := cmd.OutOrStdout()
	switch {
	case a.printConfig:
		if err := config.Write(out, a.cfg); err != nil {
			return &ExitError{Code: ExitFailure, Err: err}
		}
		return nil
	case a.printTransient:
		if err := transient.Write(out, a.cfg); err != nil {
			return &ExitError{Code: ExitFailure, Err: err}
		}
		return nil
	}

	if len(terms) == 0 && !a.printCmd {
		return &ExitError{Code: ExitFailure, Err: errors.New("no search patterns given")}
	}

	argv := command.Build(a.cfg, terms, command.WithGzip(a.gzip))
	log.Debug().Str("cmd", command.Format(argv)).Msg("assembled command")

	if a.printCmd {
		_, err := fmt.Fprintln(out, command.Format(argv))
		return err
	}

	if a.watch {
		return a.watchAndRun(cmd.Context(), argv)
	}

	code, err := command.Run(cmd.Context(), argv, a.childStdio())
	if err != nil || code != 0 {
		return &ExitError{Code: code, Err: err}
	}
	return nil
}

func (a *App) childStdio() command.Stdio {
	stdio := a.Stdio
	stdio.Dir = a.Dir
	return stdio
}

func (a *App) stdout() io.Writer {
	if a.Stdio.Out == nil {
		return io.Discard
	}
	return a.Stdio.Out
}

func (a *App) stderr() io.Writer {
	if a.Stdio.Err == nil {
		return io.Discard
	}
	return a.Stdio.Err
}

// earlyLevel picks the log level from args before the full flag set exists,
// so that configuration loading is already logged at the requested level
func earlyLevel(args []string) zerolog.Level {
	fs := pflag.NewFlagSet("findgrep", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	verbose := fs.Bool("verbose", false, "")
	level := fs.String("log-level", "", "")
	// best effort: malformed flags are reported by the full parse later
	if err := fs.Parse(args); err != nil {
		log.Debug().Err(err).Msg("early flag parse")
	}

	switch {
	case *level != "":
		return logging.ParseLevel(*level)
	case *verbose:
		return zerolog.DebugLevel
	default:
		return logging.DefaultLevel
	}
}
