// Command nearabi generates NEAR contract ABI documents from Python
// contract sources.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nearabi/nearabi/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errSilent signals a failure that has already been reported.
var errSilent = errors.New("command failed")

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	logLevel  string
	logFormat string
	logFile   string
	noColor   bool
	verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			(&cli.Printer{W: stderr}).Error(err.Error())
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "nearabi",
		Short:         "Generate NEAR contract ABI documents from Python sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.SetColor(!flags.noColor && cli.ColorDefault())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides nearabi.ini)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: console or json (overrides nearabi.ini)")
	pf.StringVar(&flags.logFile, "log-file", "", "also write JSON logs to this file")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable coloured output")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "shorthand for --log-level debug")

	root.AddCommand(
		newGenerateCmd(flags),
		newValidateCmd(flags),
		newWatchCmd(flags),
		newHistoryCmd(flags),
		newPublishCmd(flags),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nearabi version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("nearabi %s\n", version)
		},
	}
}
