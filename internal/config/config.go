package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"alchemist/internal/domain"
	"alchemist/internal/engine/auth"
)

const FileName = "alchemist.yml"

// Config models alchemist.yml.
type Config struct {
	Workspace struct {
		Name string `yaml:"name"`
	} `yaml:"workspace"`
	// Weights overlay domain.DefaultWeights.
	Weights domain.Weights    `yaml:"weights"`
	Rules   []domain.RuleSpec `yaml:"rules"`

	Schedule struct {
		// Strict gates scheduling on a clean validation of the same datasets.
		Strict bool `yaml:"strict"`
	} `yaml:"schedule"`
	Server struct {
		Addr           string `yaml:"addr"`
		BasePath       string `yaml:"base_path"`
		AllowAnonymous bool   `yaml:"allow_anonymous"`
	} `yaml:"server"`
	RBAC struct {
		Roles map[string]RBACRole `yaml:"roles"`
	} `yaml:"rbac"`
	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type RBACRole struct {
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with alc init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("config.weights: %w", err)
	}
	if _, err := domain.DecodeRules(c.Rules); err != nil {
		return fmt.Errorf("config.rules: %w", err)
	}
	if bp := c.Server.BasePath; bp != "" && !strings.HasPrefix(bp, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for roleID, role := range c.RBAC.Roles {
		if strings.TrimSpace(roleID) == "" {
			return fmt.Errorf("config.rbac.roles contains empty role id")
		}
		for _, perm := range role.Permissions {
			if !auth.Known(perm) {
				return fmt.Errorf("role %s has unknown permission %q", roleID, perm)
			}
		}
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// EffectiveWeights returns the defaults overlaid with configured weights.
func (c *Config) EffectiveWeights() domain.Weights {
	return domain.DefaultWeights().Merge(c.Weights)
}

// DecodedRules returns the configured rules as variants. Validate has already checked them.
func (c *Config) DecodedRules() domain.Rules {
	rules, err := domain.DecodeRules(c.Rules)
	if err != nil {
		return domain.Rules{}
	}
	return rules
}

// RolePermissions expands role names into their configured permissions.
func (c *Config) RolePermissions(roles []string) []string {
	var perms []string
	for _, r := range roles {
		perms = append(perms, c.RBAC.Roles[r].Permissions...)
	}
	return perms
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(name string) string {
	return fmt.Sprintf(defaultTemplate, name)
}

// Default returns the default Config.
func Default() *Config {
	cfg, err := FromYAML([]byte(GenerateDefault("default")))
	if err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `workspace:
  name: %s

# Each category takes a value from 1 to 10.
weights:
  clients: 5
  workers: 5
  tasks: 5
  priorityLevel: 5
  maxLoadPerPhase: 5

# coRun, slotRestriction, loadLimit, phaseWindow, patternMatch, precedenceOverride
rules: []

schedule:
  strict: false

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  allow_anonymous: false

rbac:
  roles:
    viewer:
      description: "Read datasets, runs and events"
      permissions: [datasets.read, runs.read, events.read, export.read]
    operator:
      description: "Import data and run validation and scheduling"
      permissions: [datasets.read, datasets.write, runs.read, runs.create, events.read, export.read]
    admin:
      description: "Everything, including API keys"
      permissions: [datasets.read, datasets.write, runs.read, runs.create, events.read, export.read, apikeys.manage]

tracing:
  enabled: false
  service_name: alchemist

webhooks: []
`
