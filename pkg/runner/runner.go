// Package runner implements per-stack operations: the layer between the
// execution engine and the external provider. It materializes resolved
// configuration, brackets the provider call with hooks, and reports errors
// upward without retrying.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stackforge/stackctl/pkg/engine"
	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/provider"
	"github.com/stackforge/stackctl/pkg/resolver"
	"github.com/stackforge/stackctl/pkg/stack"
	"github.com/stackforge/stackctl/pkg/template"
)

// Options configures the stack actions.
type Options struct {
	// RunID tags log lines with the invocation identity.
	RunID string

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// StackActions executes operations on individual stacks. Safe for
// concurrent use: all per-operation state is local to Run.
type StackActions struct {
	provider   provider.Provider
	templates  *template.Registry
	resolveCtx *stack.ResolveContext
	logger     *zap.Logger
}

// New creates stack actions over a provider and template registry.
func New(p provider.Provider, templates *template.Registry, rc *stack.ResolveContext, opts Options) *StackActions {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RunID != "" {
		logger = logger.With(zap.String("run_id", opts.RunID))
	}
	return &StackActions{
		provider:   p,
		templates:  templates,
		resolveCtx: rc,
		logger:     logger,
	}
}

var _ engine.Runner = (*StackActions)(nil)

// Run executes one operation on one stack.
//
// Hooks bracket the provider call: a failing before-hook prevents the call
// entirely, and a failing after-hook fails the stack even though the call
// succeeded. A per-stack timeout fails the operation; a timed-out create
// with rollback enabled issues a best-effort delete first.
func (a *StackActions) Run(ctx context.Context, op engine.Operation, s *stack.Stack) (interface{}, error) {
	ctx = stack.WithResolveContext(ctx, a.resolveCtx)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if err := a.runHooks(ctx, s, "before_"+string(op)); err != nil {
		return nil, err
	}

	result, err := a.invoke(ctx, op, s)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			if s.RollbackOnFailure && (op == engine.OperationCreate || op == engine.OperationLaunch) {
				a.logger.Warn("operation timed out, requesting rollback", zap.String("stack", s.Name))
				if rbErr := a.provider.Delete(context.WithoutCancel(ctx), s.Name); rbErr != nil {
					a.logger.Warn("rollback delete failed", zap.String("stack", s.Name), zap.Error(rbErr))
				}
			}
			return nil, errors.Wrap(errors.ErrCodeTimeout,
				fmt.Sprintf("operation %s on stack %q timed out after %s", op, s.Name, s.Timeout), err)
		}
		return nil, err
	}

	if err := a.runHooks(ctx, s, "after_"+string(op)); err != nil {
		return nil, err
	}

	return result, nil
}

func (a *StackActions) runHooks(ctx context.Context, s *stack.Stack, point string) error {
	for _, h := range s.HooksFor(point) {
		if err := h.Run(ctx); err != nil {
			return errors.HookError(point, err).WithDetail("stack", s.Name)
		}
	}
	return nil
}

func (a *StackActions) invoke(ctx context.Context, op engine.Operation, s *stack.Stack) (interface{}, error) {
	switch op {
	case engine.OperationLaunch:
		return a.launch(ctx, s)
	case engine.OperationCreate:
		payload, params, err := a.materialize(ctx, s)
		if err != nil {
			return nil, err
		}
		if err := a.provider.Create(ctx, s.Name, payload, params); err != nil {
			return nil, providerErr(op, s, err)
		}
		return "created", nil
	case engine.OperationUpdate:
		payload, params, err := a.materialize(ctx, s)
		if err != nil {
			return nil, err
		}
		err = a.provider.Update(ctx, s.Name, payload, params)
		if err == provider.ErrNoChanges {
			return "no changes", nil
		}
		if err != nil {
			return nil, providerErr(op, s, err)
		}
		return "updated", nil
	case engine.OperationDelete:
		err := a.provider.Delete(ctx, s.Name)
		if err == provider.ErrNotFound {
			return "does not exist", nil
		}
		if err != nil {
			return nil, providerErr(op, s, err)
		}
		return "deleted", nil
	case engine.OperationDescribe:
		desc, err := a.provider.Describe(ctx, s.Name)
		if err != nil {
			return nil, providerErr(op, s, err)
		}
		return desc, nil
	case engine.OperationOutputs:
		outputs, err := a.provider.Outputs(ctx, s.Name)
		if err != nil {
			return nil, providerErr(op, s, err)
		}
		return outputs, nil
	case engine.OperationValidate:
		payload, err := a.fetchTemplate(ctx, s)
		if err != nil {
			return nil, err
		}
		if err := a.provider.Validate(ctx, payload); err != nil {
			return nil, providerErr(op, s, err)
		}
		return "valid", nil
	case engine.OperationDiff:
		payload, params, err := a.materialize(ctx, s)
		if err != nil {
			return nil, err
		}
		diff, err := a.provider.Diff(ctx, s.Name, payload, params)
		if err != nil {
			return nil, providerErr(op, s, err)
		}
		return diff, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("unknown operation %q", op))
	}
}

// launch creates the stack if it does not exist, updates it otherwise.
// "No changes needed" counts as success.
func (a *StackActions) launch(ctx context.Context, s *stack.Stack) (interface{}, error) {
	payload, params, err := a.materialize(ctx, s)
	if err != nil {
		return nil, err
	}

	_, err = a.provider.Describe(ctx, s.Name)
	switch {
	case err == provider.ErrNotFound:
		if err := a.provider.Create(ctx, s.Name, payload, params); err != nil {
			return nil, providerErr(engine.OperationCreate, s, err)
		}
		return "created", nil
	case err != nil:
		return nil, providerErr(engine.OperationDescribe, s, err)
	}

	err = a.provider.Update(ctx, s.Name, payload, params)
	if err == provider.ErrNoChanges {
		return "no changes", nil
	}
	if err != nil {
		return nil, providerErr(engine.OperationUpdate, s, err)
	}
	return "updated", nil
}

// materialize resolves the stack's full configuration and fetches its
// template payload.
func (a *StackActions) materialize(ctx context.Context, s *stack.Stack) ([]byte, map[string]interface{}, error) {
	params, err := resolver.Materialize(ctx, a.resolveCtx, s.Attributes)
	if err != nil {
		return nil, nil, err
	}
	payload, err := a.fetchTemplate(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return payload, params, nil
}

func (a *StackActions) fetchTemplate(ctx context.Context, s *stack.Stack) ([]byte, error) {
	if s.Template == "" {
		return nil, errors.New(errors.ErrCodeTemplate,
			fmt.Sprintf("stack %q has no template", s.Name)).WithDetail("stack", s.Name)
	}
	payload, err := a.templates.Fetch(ctx, s.Template)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTemplate,
			fmt.Sprintf("fetching template for stack %q", s.Name), err)
	}
	return payload, nil
}

func providerErr(op engine.Operation, s *stack.Stack, err error) error {
	return errors.Wrap(errors.ErrCodeProvider,
		fmt.Sprintf("%s failed for stack %q", op, s.Name), err)
}

// Outputs adapts a provider to the resolver protocol's output fetcher.
type Outputs struct {
	Provider provider.Provider
}

var _ stack.OutputFetcher = (*Outputs)(nil)

// GetOutput fetches one output of a deployed stack.
func (o *Outputs) GetOutput(ctx context.Context, stackName, key string) (string, error) {
	outputs, err := o.Provider.Outputs(ctx, stackName)
	if err != nil {
		return "", err
	}
	value, ok := outputs[key]
	if !ok {
		return "", fmt.Errorf("stack %q has no output %q", stackName, key)
	}
	return value, nil
}
