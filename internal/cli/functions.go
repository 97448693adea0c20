package cli

import (
	"context"
	"fmt"

	"github.com/relaxhq/relaxd/internal/builtin"
	"github.com/relaxhq/relaxd/internal/functions"
)

// Represents the 'relaxd functions' command.
type FunctionsCmd struct{}

// Prints every registered function name, one per line.
func (c *FunctionsCmd) Run(ctx context.Context) error {
	for _, name := range newCatalog("").Names() {
		fmt.Println(name)
	}
	return nil
}

// Builds the catalog served to connections: the builtins, plus plugins
// from pluginDir when it is set.
func newCatalog(pluginDir string) *functions.Catalog {
	catalog := functions.NewCatalog()
	builtin.Register(catalog)
	if pluginDir != "" {
		catalog.SetPluginDir(pluginDir)
	}
	return catalog
}
