// Parses entity definition YAML files.

package registry

import (
	"fmt"
	"os"

	"github.com/maruel/jsoncms/internal/entity"
	"gopkg.in/yaml.v3"
)

// Definitions is the content of an entity definitions file.
type Definitions struct {
	Version  int             `yaml:"version"`
	Entities []entity.Config `yaml:"entities"`
}

// LoadDefinitions reads and parses a definitions file.
// The path is provided by the operator, so file inclusion is expected.
func LoadDefinitions(path string) ([]entity.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Operator-specified definitions path
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseDefinitions parses definitions from bytes.
//
// Only the file structure is checked here; each entity is validated when it
// is registered.
func ParseDefinitions(data []byte) ([]entity.Config, error) {
	var d Definitions
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	if d.Version != 1 {
		return nil, fmt.Errorf("unsupported definitions version: %d", d.Version)
	}
	if len(d.Entities) == 0 {
		return nil, fmt.Errorf("no entities defined")
	}
	seen := make(map[string]bool, len(d.Entities))
	for i := range d.Entities {
		name := d.Entities[i].Name
		if name == "" {
			return nil, fmt.Errorf("entity %d: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("entity %q is defined twice", name)
		}
		seen[name] = true
	}
	return d.Entities, nil
}
