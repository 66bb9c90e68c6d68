// flex.go defines the flexible YAML types the compose schema allows:
// fields that accept either a scalar or a sequence, and mappings that may
// also be written as "KEY=value" lists.
package stackfile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// stringList accepts a single string or a sequence of strings
// (e.g. depends_on and env_file allow both forms).
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = stringList(items)
		return nil
	default:
		return fmt.Errorf("expected a string or a list of strings")
	}
}

// commandLine accepts exec form (a list of arguments) or shell form
// (a single string). Shell form is split on whitespace; arguments that
// contain spaces need the list form.
type commandLine []string

func (c *commandLine) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*c = commandLine(strings.Fields(s))
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*c = commandLine(items)
		return nil
	default:
		return fmt.Errorf("expected a string or a list of strings")
	}
}

// keyValue is one environment or label entry.
type keyValue struct {
	key   string
	value string
}

// keyValues accepts a mapping or a "KEY=value" sequence, preserving the
// entry order either way. A list entry without "=" sets an empty value.
type keyValues []keyValue

func (kv *keyValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return err
			}
			valueNode := node.Content[i+1]
			if valueNode.Kind != yaml.ScalarNode {
				return fmt.Errorf("entry %q: value must be a scalar", key)
			}
			// Use the raw scalar so unquoted numbers and booleans pass
			// through as their textual form.
			*kv = append(*kv, keyValue{key: key, value: valueNode.Value})
		}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		for _, item := range items {
			key, value, _ := strings.Cut(item, "=")
			if key == "" {
				return fmt.Errorf("invalid entry %q: expected KEY=value", item)
			}
			*kv = append(*kv, keyValue{key: key, value: value})
		}
		return nil
	default:
		return fmt.Errorf("expected a mapping or a list of KEY=value strings")
	}
}
