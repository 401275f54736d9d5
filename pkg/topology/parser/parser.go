// Package parser loads a topology descriptor from YAML, applying variable
// substitution and CLI overrides before validation.
package parser

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Parser parses topology YAML files, substituting ${VAR}/$VAR references.
type Parser struct {
	Variables map[string]string
}

// New creates a parser with optional seed variables.
func New(variables map[string]string) *Parser {
	if variables == nil {
		variables = make(map[string]string)
	}
	return &Parser{Variables: variables}
}

// ParseFile loads and parses a topology descriptor from disk.
func (p *Parser) ParseFile(path string) (*topology.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	return p.Parse(data)
}

// Parse parses a topology descriptor from YAML bytes.
func (p *Parser) Parse(data []byte) (*topology.Topology, error) {
	substituted := p.substituteVariables(string(data))

	var t topology.Topology
	if err := yaml.Unmarshal([]byte(substituted), &t); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateRequiredFields(&t); err != nil {
		return nil, err
	}

	return &t, nil
}

// substituteVariables replaces ${VAR} and $VAR with parser variables, then environment variables.
func (p *Parser) substituteVariables(content string) string {
	return varPattern.ReplaceAllStringFunc(content, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if val, ok := p.Variables[name]; ok {
			return val
		}
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}

// SetVariable sets one substitution variable.
func (p *Parser) SetVariable(key, value string) {
	p.Variables[key] = value
}

// SetVariables merges substitution variables.
func (p *Parser) SetVariables(vars map[string]string) {
	for k, v := range vars {
		p.Variables[k] = v
	}
}

// ParseOverrides parses CLI override strings of the form "key=value".
func (p *Parser) ParseOverrides(overrides []string) (map[string]string, error) {
	result := make(map[string]string, len(overrides))
	for _, override := range overrides {
		parts := strings.SplitN(override, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid override format: %s (expected key=value)", override)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			return nil, fmt.Errorf("empty key in override: %s", override)
		}
		result[key] = value
	}
	return result, nil
}

// ApplyOverrides applies "node.interface.field=value" style overrides to a
// parsed topology's wireless interfaces, e.g. "rover.wlan0.rf_power_dbm=10".
func ApplyOverrides(t *topology.Topology, overrides map[string]string) error {
	for key, value := range overrides {
		parts := strings.Split(key, ".")
		if len(parts) != 3 {
			return fmt.Errorf("unsupported override key: %s (expected node.interface.field)", key)
		}
		node, ifaceName, field := parts[0], parts[1], parts[2]

		n, ok := t.Nodes[node]
		if !ok {
			return fmt.Errorf("override references unknown node: %s", node)
		}
		iface, ok := n.Interfaces[ifaceName]
		if !ok {
			return fmt.Errorf("override references unknown interface: %s.%s", node, ifaceName)
		}
		if iface.Wireless == nil {
			return fmt.Errorf("override references non-wireless interface: %s.%s", node, ifaceName)
		}

		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric override %s=%s: %w", key, value, err)
		}

		switch field {
		case "rf_power_dbm":
			iface.Wireless.RFPowerDBm = f
		case "frequency_ghz":
			iface.Wireless.FrequencyGHz = f
		case "bandwidth_mhz":
			iface.Wireless.BandwidthMHz = f
		default:
			return fmt.Errorf("unsupported override field: %s", field)
		}
		n.Interfaces[ifaceName] = iface
	}
	return nil
}

func validateRequiredFields(t *topology.Topology) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Scene.File == "" {
		return fmt.Errorf("scene.file is required")
	}
	if len(t.Nodes) == 0 {
		return fmt.Errorf("nodes must have at least one entry")
	}
	if t.SharedBridge != nil && t.SharedBridge.Enabled && len(t.Links) > 0 {
		return fmt.Errorf("links is mutually exclusive with shared_bridge")
	}
	for name, n := range t.Nodes {
		if n.Kind == "" {
			return fmt.Errorf("nodes.%s.kind is required", name)
		}
		if n.Image == "" {
			return fmt.Errorf("nodes.%s.image is required", name)
		}
	}
	return nil
}
