package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/relaxhq/relaxd/internal"
	"github.com/relaxhq/relaxd/internal/paths"
)

// Represents the root command for the relaxd daemon.
var RootCmd struct {
	Quiet     bool         `short:"q" help:"Suppress informational output."`
	Verbose   bool         `short:"v" help:"Enable verbose output."`
	Debug     bool         `short:"d" help:"Enable debug output."`
	Config    string       `short:"c" env:"RELAXD_CONFIG" default:"${config_file}" type:"path" placeholder:"PATH" help:"Settings file (${default})."`
	Start     StartCmd     `cmd:"" help:"Start the query server."`
	Functions FunctionsCmd `cmd:"" help:"List the built-in functions."`
	Version   VersionCmd   `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The relax view query server.\n\nExecutes map, reduce and validate functions for a document database over line-delimited JSON."),
		kong.UsageOnError(),
		kong.Vars{
			"version":     internal.VersionString(),
			"config_file": paths.ConfigFile(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Applies CLI flags on top of the build-time logging defaults.
func configureLogger() {
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	slog.SetDefault(internal.NewLogger(os.Stderr))
}
