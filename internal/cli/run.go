package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/stackforge/stackctl/pkg/engine"
	"github.com/stackforge/stackctl/pkg/graph"
	"github.com/stackforge/stackctl/pkg/hooks"
	"github.com/stackforge/stackctl/pkg/provider"
	"github.com/stackforge/stackctl/pkg/provider/session"
	"github.com/stackforge/stackctl/pkg/resolver"
	"github.com/stackforge/stackctl/pkg/runner"
	"github.com/stackforge/stackctl/pkg/stack"
	"github.com/stackforge/stackctl/pkg/template"
)

// workspace holds everything a command needs after project load and wiring.
type workspace struct {
	project  *Project
	provider provider.Provider
	sessions *session.Cache
	logger   *zap.Logger
	graph    *graph.Graph
}

func openWorkspace() (*workspace, error) {
	sessions := session.NewCache()

	resolvers := resolver.DefaultRegistry()
	resolver.RegisterAWS(resolvers, sessions)
	resolver.RegisterCloud(resolvers)
	hookReg := hooks.DefaultRegistry()

	proj, err := LoadProject(viper.GetString("project"), resolvers, hookReg)
	if err != nil {
		return nil, err
	}

	prov, err := provider.New(viper.GetString("provider"), nil)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if viper.GetBool("verbose") {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	g, err := graph.Build(proj.Stacks)
	if err != nil {
		return nil, err
	}

	return &workspace{
		project:  proj,
		provider: prov,
		sessions: sessions,
		logger:   logger,
		graph:    g,
	}, nil
}

// runOperation is the shared execution path: filter the graph to the
// command scope, plan, execute, render, and fail the process if any stack
// failed.
func runOperation(cmd *cobra.Command, op engine.Operation, scope []string, prune bool) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.logger.Sync() }()

	sub, err := ws.graph.Filter(graph.FilterOptions{
		Scope:              scope,
		IgnoreDependencies: viper.GetBool("ignore-dependencies"),
		Reverse:            op.Destructive(),
		Prune:              prune,
	})
	if err != nil {
		return err
	}
	if op.Destructive() {
		sub = sub.Reverse()
	}

	plan, err := engine.NewPlan(op, sub)
	if err != nil {
		return err
	}
	if plan.IsEmpty() {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
		return nil
	}

	if op.Destructive() && !viper.GetBool("yes") {
		ok, err := confirm(cmd, fmt.Sprintf("This will delete %d stack(s). Continue?", plan.Size()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}

	runID := uuid.NewString()
	rc := &stack.ResolveContext{
		Outputs:      &runner.Outputs{Provider: ws.provider},
		Placeholders: placeholdersFor(op),
		RunID:        runID,
	}

	actions := runner.New(ws.provider, template.DefaultRegistry(ws.project.Dir, ws.sessions), rc, runner.Options{
		RunID:  runID,
		Logger: ws.logger,
	})
	exec := engine.NewExecutor(actions, engine.Options{
		MaxConcurrency: viper.GetInt("max-concurrency"),
		Logger:         ws.logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := exec.Execute(ctx, plan)
	if err != nil {
		return err
	}

	renderResults(cmd.OutOrStdout(), results)

	if engine.AnyFailed(results) {
		failed := 0
		for _, r := range results {
			if r.Status == engine.StatusFailed {
				failed++
			}
		}
		return fmt.Errorf("%d of %d stacks failed", failed, len(results))
	}
	return nil
}

// placeholdersFor decides when an unresolvable cross-stack reference may be
// substituted with a placeholder: static-analysis operations that never
// touch real infrastructure get placeholders, deploy-type operations fail
// hard. --no-placeholders disables substitution everywhere.
func placeholdersFor(op engine.Operation) bool {
	if viper.GetBool("no-placeholders") {
		return false
	}
	switch op {
	case engine.OperationValidate, engine.OperationDiff:
		return true
	default:
		return false
	}
}

func renderResults(w io.Writer, results map[string]*engine.NodeResult) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, name := range names {
		r := results[name]
		switch {
		case r.Status == engine.StatusComplete:
			detail := ""
			if s, ok := r.Result.(string); ok {
				detail = " (" + s + ")"
			}
			fmt.Fprintf(w, "%s %s%s\n", green("✓"), name, detail)
		case r.Reason == engine.ReasonUpstream:
			fmt.Fprintf(w, "%s %s: %v\n", yellow("-"), name, r.Err)
		case r.Reason == engine.ReasonCancelled:
			fmt.Fprintf(w, "%s %s: cancelled\n", yellow("-"), name)
		default:
			fmt.Fprintf(w, "%s %s: %v\n", red("✗"), name, r.Err)
		}
	}
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; re-run with --yes")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	var answer string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
		return false, nil
	}
	return answer == "y" || answer == "Y" || answer == "yes", nil
}
