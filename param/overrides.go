package param

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	parametersKey = "ros__parameters"
	wildcardNode  = "/**"
)

// LoadOverridesFile reads a parameter file and returns the overrides that
// apply to the node with the given fully qualified name.
func LoadOverridesFile(path, nodeFQN string) (map[string]ParameterValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}
	return ParseOverridesYAML(data, nodeFQN)
}

// ParseOverridesYAML parses a parameter document of the form
//
//	/**:
//	  ros__parameters:
//	    use_sim_time: false
//	/talker:
//	  ros__parameters:
//	    rate: 10
//	    limits:
//	      max: 2.5
//
// Nested maps flatten into dot separated names. Sections apply in order of
// specificity: the "/**" wildcard first, then the node's own section, so a
// node section wins over the wildcard.
func ParseOverridesYAML(data []byte, nodeFQN string) (map[string]ParameterValue, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file: %w", err)
	}

	fqn := "/" + strings.TrimPrefix(nodeFQN, "/")
	type section struct {
		rank int
		body map[string]any
	}
	var sections []section
	for key, raw := range doc {
		rank := -1
		switch {
		case key == wildcardNode || key == "**":
			rank = 0
		case "/"+strings.TrimPrefix(key, "/") == fqn:
			rank = 1
		}
		if rank < 0 {
			continue
		}
		node, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("section %q: expected a mapping", key)
		}
		body, ok := node[parametersKey].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("section %q: missing %s mapping", key, parametersKey)
		}
		sections = append(sections, section{rank: rank, body: body})
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].rank < sections[j].rank })

	out := make(map[string]ParameterValue)
	for _, s := range sections {
		if err := flatten("", s.body, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func flatten(prefix string, m map[string]any, out map[string]ParameterValue) error {
	for k, v := range m {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			if err := flatten(name, nested, out); err != nil {
				return err
			}
			continue
		}
		pv, err := FromAny(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		out[name] = pv
	}
	return nil
}
