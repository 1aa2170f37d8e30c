// control/yaml.go
// Author: momentics <momentics@gmail.com>
//
// Flattening YAML loader for the config store.

package control

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAMLFile reads a YAML document and flattens nested mappings into
// dotted keys: {agent: {poll: 1ms}} becomes "agent.poll" = "1ms".
func LoadYAMLFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return LoadYAML(raw)
}

// LoadYAML flattens an in-memory YAML document.
func LoadYAML(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	out := make(map[string]any)
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}
