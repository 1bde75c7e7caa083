package settings

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"griffon/src/constraints"
	"griffon/src/models"
)

type Arguments struct {
	// Development logging to stdout
	Debug bool

	// Strongly verbose logging
	Verbose bool

	// Default for SaveParams.FailOnError
	FailOnError bool

	// Name of the datastore, a generated id when blank
	DatastoreName string

	// YAML file holding classes and constraints
	ConstraintsFile string

	// YAML file holding rows to load
	DataFile string

	// Where query snapshots are written
	SnapshotFile string
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the process-wide arguments.
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{}
	})
	return instance
}

// Config is the YAML configuration file.
type Config struct {
	FailOnError        bool                           `yaml:"failOnError"`
	Datastore          string                         `yaml:"datastore"`
	DefaultConstraints constraints.DefaultConstraints `yaml:"defaultConstraints"`
	SharedConstraints  constraints.DefaultConstraints `yaml:"sharedConstraints"`
	Classes            map[string]ClassConfig         `yaml:"classes"`
}

// ClassConfig declares a schema class: its property types and constraints.
type ClassConfig struct {
	Properties  map[string]PropertyConfig    `yaml:"properties"`
	Constraints constraints.ClassConstraints `yaml:"constraints"`
}

type PropertyConfig struct {
	Type string `yaml:"type"`
}

// LoadConfig reads and checks a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.Constraints(); err != nil {
		return nil, err
	}
	for name, class := range cfg.Classes {
		for _, pc := range class.Constraints {
			if _, ok := class.Properties[pc.Property]; !ok {
				return nil, fmt.Errorf("class %s constrains undeclared property %s", name, pc.Property)
			}
		}
	}
	return &cfg, nil
}

// Constraints merges the default and shared constraints. A shared
// constraint may not reuse the name of a default one.
func (c *Config) Constraints() (constraints.DefaultConstraints, error) {
	merged := make(constraints.DefaultConstraints, len(c.DefaultConstraints)+len(c.SharedConstraints))
	for name, defs := range c.DefaultConstraints {
		merged[name] = defs
	}
	for name, defs := range c.SharedConstraints {
		if name == constraints.GlobalConstraintsKey {
			return nil, fmt.Errorf("shared constraint cannot be named %q", name)
		}
		if _, dup := merged[name]; dup {
			return nil, fmt.Errorf("shared constraint %s is also a default constraint", name)
		}
		merged[name] = defs
	}
	return merged, nil
}

// ClassNames returns the configured class names in sorted order.
func (c *Config) ClassNames() []string {
	names := make([]string, 0, len(c.Classes))
	for name := range c.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Class builds the schema class called name along with its constraints.
func (c *Config) Class(name string) (models.DomainClass, constraints.ClassConstraints, error) {
	cc, ok := c.Classes[name]
	if !ok {
		return nil, nil, fmt.Errorf("class %s is not configured", name)
	}
	types := make(map[string]string, len(cc.Properties))
	for property, pc := range cc.Properties {
		types[property] = pc.Type
	}
	defs, err := models.SortedDefinitions(types)
	if err != nil {
		return nil, nil, fmt.Errorf("class %s: %w", name, err)
	}
	class, err := models.NewSchemaClass(name, defs)
	if err != nil {
		return nil, nil, err
	}
	return class, cc.Constraints, nil
}

// Apply fills the arguments left unset with the values of cfg.
func (a *Arguments) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if a.DatastoreName == "" {
		a.DatastoreName = cfg.Datastore
	}
	a.FailOnError = a.FailOnError || cfg.FailOnError
}
