// Loads the optional relaxd settings file.
//
// The file is YAML and every field is optional:
//
//	listen: 127.0.0.1:5936
//	plugins: /usr/lib/relaxd/plugins
//
// Command-line flags and environment variables take precedence over the
// file; the file takes precedence over built-in defaults.
package settings

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrSettings = errors.New("invalid settings")

// Contents of the settings file.
type Settings struct {
	Listen  string `yaml:"listen"`  // TCP listen address as host:port.
	Plugins string `yaml:"plugins"` // Directory holding function plugins.
}

// Reads settings from path.
//
// A missing file is not an error and yields zero settings. Unknown keys
// are rejected so typos surface at startup.
func Load(path string) (Settings, error) {
	var s Settings
	if path == "" {
		return s, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrSettings, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrSettings, path, err)
	}
	return s, nil
}
