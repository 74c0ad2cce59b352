// Copyright 2026 The Constrain Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jsonschema

import (
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// ParseYAML parses a YAML-flavored schema document into a [Value],
// preserving mapping key order the same way [ParseJSON] preserves JSON
// object member order (yaml.Node's MappingNode already keeps its Content
// in document order, so no token-stream trick is needed here the way it
// is for encoding/json). [Resolver.LoadDir] uses it for ".yaml"/".yml"
// documents: schemas authored as YAML for readability, compiled through
// the identical §4.3 pipeline as JSON ones.
func ParseYAML(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: %w", err)
	}
	if len(doc.Content) == 0 {
		return &Value{Kind: KindNull}, nil
	}
	return decodeYAMLNode(doc.Content[0])
}

func decodeYAMLNode(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return &Value{Kind: KindNull}, nil
		}
		return decodeYAMLNode(n.Content[0])

	case yaml.AliasNode:
		return decodeYAMLNode(n.Alias)

	case yaml.ScalarNode:
		return decodeYAMLScalar(n)

	case yaml.SequenceNode:
		arr := make([]*Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeYAMLNode(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return &Value{Kind: KindArray, Array: arr}, nil

	case yaml.MappingNode:
		om := orderedmap.New[string, *Value]()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("jsonschema: non-scalar YAML mapping key at line %d", keyNode.Line)
			}
			val, err := decodeYAMLNode(valNode)
			if err != nil {
				return nil, err
			}
			om.Set(keyNode.Value, val)
		}
		return &Value{Kind: KindObject, Object: om}, nil

	default:
		return nil, fmt.Errorf("jsonschema: unsupported YAML node kind %d", n.Kind)
	}
}

func decodeYAMLScalar(n *yaml.Node) (*Value, error) {
	switch n.Tag {
	case "!!null":
		return &Value{Kind: KindNull}, nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, fmt.Errorf("jsonschema: bad YAML bool %q: %w", n.Value, err)
		}
		return &Value{Kind: KindBool, Bool: b}, nil
	case "!!int", "!!float":
		return &Value{Kind: KindNumber, Number: json.Number(n.Value)}, nil
	default:
		return &Value{Kind: KindString, Str: n.Value}, nil
	}
}
