package cli

import (
	"context"
	"log/slog"

	"github.com/relaxhq/relaxd/internal/paths"
	"github.com/relaxhq/relaxd/internal/server"
	"github.com/relaxhq/relaxd/internal/settings"
	"golang.org/x/sync/errgroup"
)

// Represents the 'relaxd start' command.
type StartCmd struct {
	Listen  string `short:"l" env:"RELAXD_LISTEN" placeholder:"HOST:PORT" help:"TCP address to listen on."`
	Plugins string `short:"p" env:"RELAXD_PLUGINS" type:"path" placeholder:"DIR" help:"Directory holding function plugins."`
}

// Executes the start command.
//
// Starts the query server and blocks until the context is cancelled (e.g.
// via SIGINT or SIGTERM) or the server fails.
func (c *StartCmd) Run(ctx context.Context) error {
	s, err := settings.Load(RootCmd.Config)
	if err != nil {
		return err
	}

	listen := firstSet(c.Listen, s.Listen, server.DefaultAddress)
	plugins := firstSet(c.Plugins, s.Plugins, paths.PluginDir())

	srv, err := server.New(server.Config{
		Address: listen,
		Catalog: newCatalog(plugins),
		PIDFile: paths.PIDFile(),
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("relaxd is running", "address", srv.Addr(), "plugins", plugins)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(srv.Wait)
	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("shutting down")
		return srv.Stop()
	})
	return eg.Wait()
}

// Returns the first non-empty value.
func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
