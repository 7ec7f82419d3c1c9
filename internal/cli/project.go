package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/hooks"
	"github.com/stackforge/stackctl/pkg/resolver"
	"github.com/stackforge/stackctl/pkg/stack"
)

// Project is a loaded project file: every stack the project knows about.
type Project struct {
	Name   string
	Dir    string
	Stacks []*stack.Stack
}

// StackNames returns the project's stack names, sorted.
func (p *Project) StackNames() []string {
	names := make([]string, 0, len(p.Stacks))
	for _, s := range p.Stacks {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// LoadProject reads a project file and constructs its stacks. Resolver
// specs are YAML custom tags (!env, !file, !stack_output, !s3, !secret,
// !gcs, !azblob, !no_value) anywhere inside a stack's parameters; hooks
// are single-key mappings of hook tag to argument, e.g.
//
//	stacks:
//	  network/vpc:
//	    template: templates/vpc.yml
//	    parameters:
//	      cidr: 10.0.0.0/16
//	      zone: !env AWS_AZ
//	    hooks:
//	      after_create:
//	        - cmd: ./scripts/smoke-test.sh
func LoadProject(path string, resolvers *resolver.Registry, hookReg *hooks.Registry) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, "reading project file", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, "parsing project file", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrCodeConfig, "project file must be a YAML mapping")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	proj := &Project{Dir: filepath.Dir(absPath)}

	root := doc.Content[0]
	for i := 0; i < len(root.Content); i += 2 {
		key := root.Content[i].Value
		value := root.Content[i+1]
		switch key {
		case "project":
			proj.Name = value.Value
		case "stacks":
			if value.Kind != yaml.MappingNode {
				return nil, errors.New(errors.ErrCodeConfig, "stacks must be a mapping of name to stack config")
			}
			for j := 0; j < len(value.Content); j += 2 {
				name := value.Content[j].Value
				s, err := parseStack(name, value.Content[j+1], resolvers, hookReg)
				if err != nil {
					return nil, err
				}
				proj.Stacks = append(proj.Stacks, s)
			}
		}
	}

	return proj, nil
}

func parseStack(name string, node *yaml.Node, resolvers *resolver.Registry, hookReg *hooks.Registry) (*stack.Stack, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrCodeConfig, fmt.Sprintf("stack %q must be a mapping", name))
	}

	cfg := stack.Config{Name: name}

	fail := func(field string, err error) error {
		return errors.Wrap(errors.ErrCodeConfig, fmt.Sprintf("stack %q: invalid %s", name, field), err)
	}

	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]

		switch key {
		case "template":
			cfg.Template = value.Value
		case "depends_on":
			if err := value.Decode(&cfg.DependsOn); err != nil {
				return nil, fail(key, err)
			}
		case "parameters":
			attrs, err := convertNode(value, resolvers)
			if err != nil {
				return nil, fail(key, err)
			}
			m, ok := attrs.(map[string]interface{})
			if !ok {
				return nil, fail(key, fmt.Errorf("parameters must be a mapping"))
			}
			cfg.Attributes = m
		case "hooks":
			parsed, err := parseHooks(value, resolvers, hookReg)
			if err != nil {
				return nil, fail(key, err)
			}
			cfg.Hooks = parsed
		case "ignore":
			if err := value.Decode(&cfg.Ignore); err != nil {
				return nil, fail(key, err)
			}
		case "obsolete":
			if err := value.Decode(&cfg.Obsolete); err != nil {
				return nil, fail(key, err)
			}
		case "timeout":
			d, err := time.ParseDuration(value.Value)
			if err != nil {
				return nil, fail(key, err)
			}
			cfg.Timeout = d
		case "rollback_on_failure":
			if err := value.Decode(&cfg.RollbackOnFailure); err != nil {
				return nil, fail(key, err)
			}
		default:
			return nil, errors.New(errors.ErrCodeConfig, fmt.Sprintf("stack %q: unknown field %q", name, key))
		}
	}

	return stack.New(cfg), nil
}

func parseHooks(node *yaml.Node, resolvers *resolver.Registry, hookReg *hooks.Registry) (map[string][]stack.Hook, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("hooks must be a mapping of hook point to hook list")
	}

	out := make(map[string][]stack.Hook)
	for i := 0; i < len(node.Content); i += 2 {
		point := node.Content[i].Value
		list := node.Content[i+1]
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("hook point %q must hold a list", point)
		}

		for _, item := range list.Content {
			if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
				return nil, fmt.Errorf("hook point %q: each hook must be a single-key mapping", point)
			}
			tag := item.Content[0].Value
			arg, err := convertNode(item.Content[1], resolvers)
			if err != nil {
				return nil, err
			}
			h, err := hookReg.Create(tag, arg)
			if err != nil {
				return nil, err
			}
			out[point] = append(out[point], h)
		}
	}
	return out, nil
}

// convertNode turns a YAML node into a plain Go structure, instantiating a
// resolver wherever a custom tag appears. Custom-tagged scalars pass their
// literal text as the resolver argument; custom-tagged mappings and
// sequences pass the converted structure, which may itself contain nested
// resolvers.
func convertNode(node *yaml.Node, resolvers *resolver.Registry) (interface{}, error) {
	if node.Kind == yaml.AliasNode {
		return convertNode(node.Alias, resolvers)
	}

	if tag, custom := customTag(node); custom {
		arg, err := convertUntagged(node, resolvers)
		if err != nil {
			return nil, err
		}
		return resolvers.Create(tag, arg)
	}

	return convertUntagged(node, resolvers)
}

func convertUntagged(node *yaml.Node, resolvers *resolver.Registry) (interface{}, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if _, custom := customTag(node); custom {
			return node.Value, nil
		}
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil

	case yaml.MappingNode:
		out := make(map[string]interface{}, len(node.Content)/2)
		for i := 0; i < len(node.Content); i += 2 {
			value, err := convertNode(node.Content[i+1], resolvers)
			if err != nil {
				return nil, err
			}
			out[node.Content[i].Value] = value
		}
		return out, nil

	case yaml.SequenceNode:
		out := make([]interface{}, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := convertNode(item, resolvers)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d", node.Kind)
	}
}

func customTag(node *yaml.Node) (string, bool) {
	if strings.HasPrefix(node.Tag, "!") && !strings.HasPrefix(node.Tag, "!!") {
		return strings.TrimPrefix(node.Tag, "!"), true
	}
	return "", false
}
