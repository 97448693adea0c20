package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "relaxd"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Directory for runtime files (PID file).
//
//	Linux:   $XDG_RUNTIME_DIR/relaxd or /run/user/<uid>/relaxd
//	macOS:   ~/Library/Caches/relaxd/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/relaxd/relaxd.pid
//	macOS:   ~/Library/Caches/relaxd/run/relaxd.pid
func PIDFile() string {
	return filepath.Join(Runtime(), daemonName+".pid")
}

// Default path to the settings file.
//
//	Linux:   $XDG_CONFIG_HOME/relaxd/config.yaml
//	macOS:   ~/Library/Application Support/relaxd/config.yaml
func ConfigFile() string {
	return filepath.Join(xdg.ConfigHome, daemonName, "config.yaml")
}

// Default directory searched for function plugins.
//
//	Linux:   $XDG_DATA_HOME/relaxd/plugins
//	macOS:   ~/Library/Application Support/relaxd/plugins
func PluginDir() string {
	return filepath.Join(xdg.DataHome, daemonName, "plugins")
}
