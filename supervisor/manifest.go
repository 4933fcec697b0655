package supervisor

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/vellum-studio/vellum/errors"
)

// manifestFileName sits next to the agent binary and carries spawn
// preferences the binary's author ships with it.
const manifestFileName = "vellum-agent.toml"

// Manifest describes how an agent binary wants to be launched.
type Manifest struct {
	Name string            `toml:"name"`
	Args []string          `toml:"args"`
	Env  map[string]string `toml:"env"`
}

// loadManifest reads the manifest next to the given binary. A missing file
// is not an error; the agent simply launches bare.
func loadManifest(binaryDir string) (*Manifest, error) {
	path := filepath.Join(binaryDir, manifestFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return &m, nil
}
