package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/stack"
)

// Status tracks the execution state of a node.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReady    Status = "ready"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Reason distinguishes why a node failed, for diagnosability.
type Reason string

const (
	// ReasonError means the node's own operation failed.
	ReasonError Reason = "error"

	// ReasonUpstream means a prerequisite failed and the node never ran.
	ReasonUpstream Reason = "upstream"

	// ReasonCancelled means the run was aborted before the node started.
	ReasonCancelled Reason = "cancelled"
)

// NodeResult is the terminal record for one stack in a run.
type NodeResult struct {
	Name       string
	Status     Status
	Reason     Reason
	Err        error
	Result     interface{}
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner executes one operation on one stack. Implementations are stateless
// from the executor's perspective and safe for concurrent use.
type Runner interface {
	Run(ctx context.Context, op Operation, s *stack.Stack) (interface{}, error)
}

// Options configures the executor.
type Options struct {
	// MaxConcurrency bounds the number of stacks running at once.
	// Zero or negative means no explicit bound.
	MaxConcurrency int

	// Logger receives per-node transition logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Executor walks a plan's graph breadth-by-readiness, submitting ready
// nodes to a worker pool while strictly serializing dependent operations.
type Executor struct {
	runner Runner
	opts   Options
}

// NewExecutor creates an executor.
func NewExecutor(runner Runner, opts Options) *Executor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Executor{runner: runner, opts: opts}
}

// event is a worker's completion report to the coordinator.
type event struct {
	name    string
	result  interface{}
	err     error
	started bool
}

// Execute runs the plan's operation across the graph and returns a terminal
// result per node. One branch failing never aborts the run: independent
// branches complete and the aggregate mapping reports every node.
//
// When ctx is cancelled, no new node starts; nodes already running finish,
// and everything not yet started resolves to a cancelled failure.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (map[string]*NodeResult, error) {
	g := plan.Graph
	log := e.opts.Logger

	var mu sync.Mutex
	results := make(map[string]*NodeResult, len(g.Nodes))
	waiting := make(map[string]int, len(g.Nodes))
	for name, node := range g.Nodes {
		results[name] = &NodeResult{Name: name, Status: StatusPending}
		waiting[name] = len(node.DependsOn)
	}

	var sem chan struct{}
	if e.opts.MaxConcurrency > 0 {
		sem = make(chan struct{}, e.opts.MaxConcurrency)
	}

	done := make(chan event)
	running := 0
	terminal := 0
	cancelled := false

	dispatch := func(name string) {
		mu.Lock()
		results[name].Status = StatusReady
		mu.Unlock()
		running++

		go func() {
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					done <- event{name: name}
					return
				}
			}
			if ctx.Err() != nil {
				done <- event{name: name}
				return
			}

			mu.Lock()
			r := results[name]
			r.Status = StatusRunning
			r.StartedAt = time.Now()
			mu.Unlock()

			log.Debug("stack operation started",
				zap.String("stack", name),
				zap.String("operation", string(plan.Operation)))

			out, err := e.runner.Run(ctx, plan.Operation, g.Nodes[name].Stack)
			done <- event{name: name, result: out, err: err, started: true}
		}()
	}

	// failDownstream marks every not-yet-dispatched dependent of name as
	// failed with an upstream reason, transitively. Only Pending nodes can
	// be affected: a dependent of an unfinished node was never dispatched.
	var failDownstream func(name string, cause error)
	failDownstream = func(name string, cause error) {
		for _, dep := range g.Dependents(name) {
			r := results[dep]
			if r.Status != StatusPending {
				continue
			}
			r.Status = StatusFailed
			r.Reason = ReasonUpstream
			r.Err = errors.UpstreamFailed(dep, name, cause)
			terminal++
			log.Debug("stack skipped, upstream failure",
				zap.String("stack", dep),
				zap.String("failed_dependency", name))
			failDownstream(dep, cause)
		}
	}

	// Seed with every node that has no prerequisites.
	for _, name := range g.Names() {
		if waiting[name] == 0 {
			dispatch(name)
		}
	}

	ctxDone := ctx.Done()
	for terminal < len(results) {
		if running == 0 {
			// Nothing in flight and nothing dispatchable: the run was
			// aborted before the remaining nodes could start.
			mu.Lock()
			for name, r := range results {
				if !r.Status.Terminal() {
					r.Status = StatusFailed
					r.Reason = ReasonCancelled
					r.Err = errors.Cancelled(name)
					terminal++
				}
			}
			mu.Unlock()
			break
		}

		select {
		case <-ctxDone:
			cancelled = true
			ctxDone = nil
			log.Info("cancellation requested, waiting for in-flight stacks")
			continue
		case ev := <-done:
			running--
			mu.Lock()
			r := results[ev.name]
			switch {
			case !ev.started:
				r.Status = StatusFailed
				r.Reason = ReasonCancelled
				r.Err = errors.Cancelled(ev.name)
				terminal++
			case ev.err != nil:
				r.Status = StatusFailed
				r.Reason = ReasonError
				r.Err = ev.err
				r.FinishedAt = time.Now()
				terminal++
				log.Warn("stack operation failed",
					zap.String("stack", ev.name),
					zap.Error(ev.err))
				failDownstream(ev.name, ev.err)
			default:
				r.Status = StatusComplete
				r.Result = ev.result
				r.FinishedAt = time.Now()
				terminal++
				log.Debug("stack operation complete", zap.String("stack", ev.name))
			}
			mu.Unlock()

			if ev.started && ev.err == nil && !cancelled {
				for _, dep := range g.Dependents(ev.name) {
					waiting[dep]--
					if waiting[dep] == 0 && results[dep].Status == StatusPending {
						dispatch(dep)
					}
				}
			} else if ev.started && ev.err == nil {
				// Completed after cancellation: dependents stay pending and
				// are marked cancelled once the pool drains.
				for _, dep := range g.Dependents(ev.name) {
					waiting[dep]--
				}
			}
		}
	}

	return results, nil
}

// AnyFailed reports whether any node in the aggregate failed. The CLI
// derives the process exit code from this.
func AnyFailed(results map[string]*NodeResult) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}
