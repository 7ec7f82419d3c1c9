package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/stackforge/stackctl/pkg/resolver"
	"github.com/stackforge/stackctl/pkg/stack"
)

// Cmd runs a shell command. The argument may be a literal string or a
// resolver yielding one; nested resolvers register their dependencies on
// the owning stack like attribute resolvers do.
type Cmd struct {
	owner *stack.Stack
	arg   interface{}
}

// NewCmd is the factory for the "cmd" tag.
func NewCmd(arg interface{}) (stack.Hook, error) {
	if arg == nil {
		return nil, fmt.Errorf("cmd hook requires a command argument")
	}
	return &Cmd{arg: arg}, nil
}

// Bind attaches the owning stack and binds any resolver in the argument.
func (h *Cmd) Bind(s *stack.Stack) {
	h.owner = s
	stack.WalkResolvers(h.arg, func(r stack.Resolver) {
		r.Bind(s)
	})
}

// Dependencies reports dependencies contributed by argument resolvers.
func (h *Cmd) Dependencies() []string {
	var deps []string
	stack.WalkResolvers(h.arg, func(r stack.Resolver) {
		deps = append(deps, r.Dependencies()...)
	})
	return deps
}

// Run resolves the argument and executes it with the system shell.
func (h *Cmd) Run(ctx context.Context) error {
	rc := stack.ResolveContextFrom(ctx)
	resolved, ok, err := resolver.MaterializeValue(ctx, rc, h.arg)
	if err != nil {
		return fmt.Errorf("resolving cmd hook argument: %w", err)
	}
	if !ok {
		return nil
	}

	command, isString := resolved.(string)
	if !isString {
		return fmt.Errorf("cmd hook argument must resolve to a string, got %T", resolved)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = append(os.Environ(), "STACKCTL_STACK_NAME="+h.owner.Name)
	if rc.RunID != "" {
		cmd.Env = append(cmd.Env, "STACKCTL_RUN_ID="+rc.RunID)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %q failed: %w\n%s", command, err, out)
	}
	return nil
}
