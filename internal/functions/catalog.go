package functions

import (
	"fmt"
	"log/slog"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/relaxhq/relaxd/internal/protocol"
)

// Separator between the container and the leaf of a function name.
const separator = "."

// Name-to-function resolution namespace shared by all connections.
type Catalog struct {
	mu         sync.Mutex
	namespaces map[string]map[string]any // Registered containers and their leaves.
	pluginDir  string                    // Directory holding "<container>.so" files. Empty disables plugins.
	plugins    map[string]*plugin.Plugin // Opened plugins, by container.
}

// Creates an empty catalog with plugin loading disabled.
func NewCatalog() *Catalog {
	return &Catalog{
		namespaces: make(map[string]map[string]any),
		plugins:    make(map[string]*plugin.Plugin),
	}
}

// Enables plugin fallback for containers that are not registered.
func (c *Catalog) SetPluginDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pluginDir = dir
}

// Registers fn as container.leaf, replacing any previous entry.
func (c *Catalog) Register(container, leaf string, fn any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.namespaces[container]
	if !ok {
		ns = make(map[string]any)
		c.namespaces[container] = ns
	}
	ns[leaf] = fn
}

// Registers every entry of fns under container.
func (c *Catalog) RegisterNamespace(container string, fns map[string]any) {
	for leaf, fn := range fns {
		c.Register(container, leaf, fn)
	}
}

// Returns the sorted names of all registered functions.
//
// Functions that are only reachable through plugins are not listed.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for container, ns := range c.namespaces {
		for leaf := range ns {
			names = append(names, container+separator+leaf)
		}
	}
	slices.Sort(names)
	return names
}

// Looks up the value registered under name.
//
// The name is split on its final separator. The container part is looked
// up among registered namespaces first and then, if enabled, among
// plugins. Fails with [protocol.ErrFunctionNotFound] if the container
// cannot be resolved or holds no such leaf.
func (c *Catalog) Resolve(name string) (any, error) {
	idx := strings.LastIndex(name, separator)
	if idx <= 0 || idx == len(name)-1 {
		return nil, notFound(name)
	}
	container, leaf := name[:idx], name[idx+1:]

	c.mu.Lock()
	defer c.mu.Unlock()

	if ns, ok := c.namespaces[container]; ok {
		fn, ok := ns[leaf]
		if !ok {
			return nil, notFound(name)
		}
		return fn, nil
	}

	if c.pluginDir == "" {
		return nil, notFound(name)
	}

	p, err := c.openPlugin(container)
	if err != nil {
		slog.Debug("plugin unavailable", "container", container, "error", err)
		return nil, notFound(name)
	}

	sym, err := p.Lookup(leaf)
	if err != nil {
		return nil, notFound(name)
	}
	return sym, nil
}

// Resolves name and applies the log-aware factory indirection.
//
// If the resolved value is a [LogAware] factory it is called once with r
// and its result is returned in its place; logAware reports whether that
// happened.
func (c *Catalog) Load(name string, r Reporter) (fn any, logAware bool, err error) {
	fn, err = c.Resolve(name)
	if err != nil {
		return nil, false, err
	}

	factory, ok := asLogAware(fn)
	if !ok {
		return fn, false, nil
	}

	fn, err = build(factory, r)
	if err != nil {
		return nil, true, err
	}
	return fn, true, nil
}

// Runs a log-aware factory, converting a panic into an error.
func build(factory LogAware, r Reporter) (fn any, err error) {
	defer recoverInto(&err)
	fn = factory(r)
	return fn, nil
}

// Opens the plugin backing container, caching the result. Must be called
// with c.mu held.
func (c *Catalog) openPlugin(container string) (*plugin.Plugin, error) {
	if p, ok := c.plugins[container]; ok {
		return p, nil
	}

	path, err := pluginPath(c.pluginDir, container)
	if err != nil {
		return nil, err
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlugin, err)
	}

	slog.Info("plugin loaded", "container", container, "path", path)

	c.plugins[container] = p
	return p, nil
}

func notFound(name string) error {
	return fmt.Errorf("%w: %q", protocol.ErrFunctionNotFound, name)
}
