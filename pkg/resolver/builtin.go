package resolver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/stack"
)

// base carries the owning-stack back-reference shared by built-ins.
type base struct {
	owner *stack.Stack
}

func (b *base) Bind(s *stack.Stack)    { b.owner = s }
func (b *base) Dependencies() []string { return nil }

// EnvVar resolves to the value of an environment variable. Missing
// variables are a resolution error.
type EnvVar struct {
	base
	Name string
}

// NewEnvVar is the factory for the "env" tag.
func NewEnvVar(arg interface{}) (stack.Resolver, error) {
	name, err := stringArg("env", arg)
	if err != nil {
		return nil, err
	}
	return &EnvVar{Name: name}, nil
}

func (r *EnvVar) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	value, ok := os.LookupEnv(r.Name)
	if !ok {
		return nil, errors.ResolutionError("env", fmt.Sprintf("environment variable %q is not set", r.Name), nil)
	}
	return value, nil
}

// FileContents resolves to the contents of a local file.
type FileContents struct {
	base
	Path string
}

// NewFileContents is the factory for the "file" tag.
func NewFileContents(arg interface{}) (stack.Resolver, error) {
	path, err := stringArg("file", arg)
	if err != nil {
		return nil, err
	}
	return &FileContents{Path: path}, nil
}

func (r *FileContents) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, errors.ResolutionError("file", fmt.Sprintf("reading %q", r.Path), err)
	}
	return string(data), nil
}

// NoValueResolver always yields NoValue; the surrounding entry is omitted.
type NoValueResolver struct {
	base
}

// NewNoValue is the factory for the "no_value" tag.
func NewNoValue(arg interface{}) (stack.Resolver, error) {
	return &NoValueResolver{}, nil
}

func (r *NoValueResolver) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	return stack.NoValue, nil
}

// StackOutput resolves to another stack's output value. The referenced
// stack becomes an inferred dependency of the owner. When the target has
// not been deployed yet and placeholders are enabled, a best-effort
// placeholder string is substituted instead of failing; the exact format
// is not load-bearing.
type StackOutput struct {
	base
	Target string
	Key    string
}

// NewStackOutput is the factory for the "stack_output" tag. The argument
// is "stack-name::output-key".
func NewStackOutput(arg interface{}) (stack.Resolver, error) {
	ref, err := stringArg("stack_output", arg)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(ref, "::", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("stack_output argument must be \"stack::output\", got %q", ref)
	}
	return &StackOutput{Target: parts[0], Key: parts[1]}, nil
}

func (r *StackOutput) Dependencies() []string {
	return []string{r.Target}
}

func (r *StackOutput) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	if rc.Outputs != nil {
		value, err := rc.Outputs.GetOutput(ctx, r.Target, r.Key)
		if err == nil {
			return value, nil
		}
		if !rc.Placeholders {
			return nil, errors.ResolutionError("stack_output",
				fmt.Sprintf("output %q of stack %q", r.Key, r.Target), err)
		}
	} else if !rc.Placeholders {
		return nil, errors.ResolutionError("stack_output",
			fmt.Sprintf("no output source available for stack %q", r.Target), nil)
	}
	return r.Placeholder(), nil
}

// Placeholder returns the best-effort substitute used when the target
// stack's outputs are unavailable.
func (r *StackOutput) Placeholder() string {
	return fmt.Sprintf("{{ %s::%s }}", r.Target, r.Key)
}

func stringArg(tag string, arg interface{}) (string, error) {
	s, ok := arg.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("resolver %q requires a non-empty string argument, got %T", tag, arg)
	}
	return s, nil
}
