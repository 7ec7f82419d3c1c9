package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/graph"
	"github.com/stackforge/stackctl/pkg/stack"
)

// fakeRunner records per-stack start/finish times and concurrency, and can
// be told to fail or block specific stacks.
type fakeRunner struct {
	mu            sync.Mutex
	delay         time.Duration
	fail          map[string]error
	block         map[string]chan struct{}
	starts        map[string]time.Time
	finishes      map[string]time.Time
	concurrent    int
	maxConcurrent int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		fail:     map[string]error{},
		block:    map[string]chan struct{}{},
		starts:   map[string]time.Time{},
		finishes: map[string]time.Time{},
	}
}

func (f *fakeRunner) Run(ctx context.Context, op Operation, s *stack.Stack) (interface{}, error) {
	f.mu.Lock()
	f.starts[s.Name] = time.Now()
	f.concurrent++
	if f.concurrent > f.maxConcurrent {
		f.maxConcurrent = f.concurrent
	}
	gate := f.block[s.Name]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.concurrent--
	f.finishes[s.Name] = time.Now()
	err := f.fail[s.Name]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return "done", nil
}

func buildPlan(t *testing.T, op Operation, stacks ...*stack.Stack) *Plan {
	t.Helper()
	g, err := graph.Build(stacks)
	require.NoError(t, err)
	if op.Destructive() {
		g = g.Reverse()
	}
	plan, err := NewPlan(op, g)
	require.NoError(t, err)
	return plan
}

func testStack(name string, deps ...string) *stack.Stack {
	return stack.New(stack.Config{Name: name, DependsOn: deps})
}

func TestExecute_Ordering(t *testing.T) {
	// c depends on b depends on a: b must complete before c starts.
	runner := newFakeRunner()
	runner.delay = 5 * time.Millisecond
	exec := NewExecutor(runner, Options{})

	plan := buildPlan(t, OperationLaunch,
		testStack("a"),
		testStack("b", "a"),
		testStack("c", "b"),
	)

	results, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c"} {
		assert.Equal(t, StatusComplete, results[name].Status, name)
	}

	assert.False(t, runner.finishes["a"].After(runner.starts["b"]),
		"a must complete before b starts")
	assert.False(t, runner.finishes["b"].After(runner.starts["c"]),
		"b must complete before c starts")
}

func TestExecute_ReverseOrderingForDelete(t *testing.T) {
	runner := newFakeRunner()
	runner.delay = 5 * time.Millisecond
	exec := NewExecutor(runner, Options{})

	plan := buildPlan(t, OperationDelete,
		testStack("a"),
		testStack("b", "a"),
	)

	_, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.False(t, runner.finishes["b"].After(runner.starts["a"]),
		"b's delete must complete before a's delete starts")
}

func TestExecute_FailurePropagation(t *testing.T) {
	// a fails: b and c depend on it transitively and must fail with an
	// upstream reason without ever running.
	runner := newFakeRunner()
	runner.fail["a"] = fmt.Errorf("provider exploded")
	exec := NewExecutor(runner, Options{})

	plan := buildPlan(t, OperationLaunch,
		testStack("a"),
		testStack("b", "a"),
		testStack("c", "b"),
	)

	results, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, results["a"].Status)
	assert.Equal(t, ReasonError, results["a"].Reason)

	for _, name := range []string{"b", "c"} {
		r := results[name]
		assert.Equal(t, StatusFailed, r.Status, name)
		assert.Equal(t, ReasonUpstream, r.Reason, name)
		assert.True(t, errors.Is(r.Err, errors.ErrCodeUpstream), name)
		_, ran := runner.starts[name]
		assert.False(t, ran, "%s must never have entered running", name)
	}
}

func TestExecute_IndependentBranchesSurviveFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.fail["x"] = fmt.Errorf("boom")
	exec := NewExecutor(runner, Options{})

	plan := buildPlan(t, OperationLaunch,
		testStack("x"),
		testStack("y"),
	)

	results, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, results["x"].Status)
	assert.Equal(t, StatusComplete, results["y"].Status)
	assert.True(t, AnyFailed(results))
}

func TestExecute_ConcurrencyBound(t *testing.T) {
	runner := newFakeRunner()
	runner.delay = 5 * time.Millisecond
	exec := NewExecutor(runner, Options{MaxConcurrency: 1})

	var stacks []*stack.Stack
	for i := 0; i < 8; i++ {
		stacks = append(stacks, testStack(fmt.Sprintf("s%d", i)))
	}
	plan := buildPlan(t, OperationLaunch, stacks...)

	results, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.Len(t, results, 8)
	assert.Equal(t, 1, runner.maxConcurrent,
		"with max-concurrency=1 no two stacks may run simultaneously")
}

func TestExecute_IndependentStacksRunConcurrently(t *testing.T) {
	runner := newFakeRunner()
	gate := make(chan struct{})
	runner.block["x"] = gate
	runner.block["y"] = gate
	exec := NewExecutor(runner, Options{})

	plan := buildPlan(t, OperationLaunch, testStack("x"), testStack("y"))

	go func() {
		// Both must be in flight before either can finish.
		for {
			runner.mu.Lock()
			n := runner.concurrent
			runner.mu.Unlock()
			if n == 2 {
				close(gate)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	results, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, results["x"].Status)
	assert.Equal(t, StatusComplete, results["y"].Status)
	assert.Equal(t, 2, runner.maxConcurrent)
}

func TestExecute_Cancellation(t *testing.T) {
	runner := newFakeRunner()
	gate := make(chan struct{})
	runner.block["a"] = gate
	exec := NewExecutor(runner, Options{})

	plan := buildPlan(t, OperationLaunch,
		testStack("a"),
		testStack("b", "a"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Wait for a to be in flight, then abort the run and let a finish.
		for {
			runner.mu.Lock()
			_, started := runner.starts["a"]
			runner.mu.Unlock()
			if started {
				cancel()
				close(gate)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	results, err := exec.Execute(ctx, plan)
	require.NoError(t, err)

	// The in-flight stack was allowed to finish; the dependent never started.
	assert.Equal(t, StatusComplete, results["a"].Status)
	assert.Equal(t, StatusFailed, results["b"].Status)
	assert.Equal(t, ReasonCancelled, results["b"].Reason)
	assert.True(t, errors.Is(results["b"].Err, errors.ErrCodeCancelled))
	_, ran := runner.starts["b"]
	assert.False(t, ran)
}

func TestExecute_EmptyPlan(t *testing.T) {
	exec := NewExecutor(newFakeRunner(), Options{})
	plan := buildPlan(t, OperationLaunch)

	results, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, AnyFailed(results))
}
