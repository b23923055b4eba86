// Package pipeline implements the stage executor: it maps an ordered list
// of requested stage names onto external-process invocations, enforcing
// declared dependencies and surfacing the first failure.
//
// Execution is strictly sequential within one Exec call. The only
// concurrency is external: the run stage may detach a multi-process solver
// when background mode is requested. A case directory must be driven by at
// most one active Exec call at a time; that is a caller responsibility,
// not something the executor locks against.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/philipcardiff/snek5000/internal/ctxlog"
	"github.com/philipcardiff/snek5000/internal/params"
	"github.com/philipcardiff/snek5000/internal/registry"
)

// Launcher abstracts the actual launching of external commands so the
// executor can be tested without touching the process table.
type Launcher interface {
	// Run blocks until the command exits and returns its combined output.
	Run(ctx context.Context, cmd registry.Command) (string, error)
	// Start detaches the command and returns its PID immediately.
	Start(ctx context.Context, cmd registry.Command) (int, error)
}

// Options selects what one Exec call does.
type Options struct {
	// Stages is the ordered request. Empty means the registry's canonical
	// full order. Duplicates are allowed and re-run the stage.
	Stages []string
	// DryRun records the resolved plan without launching anything.
	DryRun bool
	// Background detaches the run stage instead of blocking on it. Other
	// stages ignore it.
	Background bool
}

// Executor drives the stage pipeline for a single case. It holds a
// snapshot of the parameter tree, so caller mutation after construction
// does not leak into an in-flight run.
type Executor struct {
	registry *registry.Registry
	params   *params.Params
	caseDir  string
	launcher Launcher
}

// New creates an executor for one case directory. The registry is shared
// read-only; the params are snapshotted.
func New(reg *registry.Registry, p *params.Params, caseDir string, launcher Launcher) *Executor {
	return &Executor{
		registry: reg,
		params:   p.Clone(),
		caseDir:  caseDir,
		launcher: launcher,
	}
}

// Validate performs the same upfront checks Exec starts with, without
// launching or resolving anything: parameter domains, stage names, and the
// dependency walk. Empty stages means the canonical full order. Callers
// that write to the case directory before executing run it first, so a
// request Exec would reject never leaves anything on disk.
func (e *Executor) Validate(stages []string) error {
	if len(stages) == 0 {
		stages = e.registry.CanonicalOrder()
	}
	if err := e.params.Validate(); err != nil {
		return err
	}
	return e.checkDependencies(stages)
}

// Exec validates and then runs the requested stages in order. All
// validation (parameter domain, stage names, dependency ordering) happens
// before the first external process: a rejected request has zero side
// effects. After the first stage failure the remaining requested stages
// are marked skipped and a *StageExecutionError is returned alongside the
// run record.
func (e *Executor) Exec(ctx context.Context, opts Options) (*Run, error) {
	logger := ctxlog.FromContext(ctx)

	stages := opts.Stages
	if len(stages) == 0 {
		stages = e.registry.CanonicalOrder()
	}

	if err := e.Validate(stages); err != nil {
		return nil, err
	}

	run := &Run{
		ID:         uuid.NewString(),
		CaseDir:    e.caseDir,
		DryRun:     opts.DryRun,
		Background: opts.Background,
		StartedAt:  time.Now(),
	}

	// Resolve every command up front. This keeps dry-run and real mode on
	// the same plan, and means a template error also has zero side effects.
	for _, name := range stages {
		cmd, err := e.registry.Resolve(name, e.params, e.caseDir)
		if err != nil {
			return nil, err
		}
		run.Stages = append(run.Stages, StageResult{
			Name:    name,
			Status:  StatusPending,
			Command: cmd,
		})
	}

	if opts.DryRun {
		for i := range run.Stages {
			run.Stages[i].Status = StatusPlanned
			logger.Info("Planned stage.", "stage", run.Stages[i].Name, "command", run.Stages[i].Command.String())
		}
		run.FinishedAt = time.Now()
		return run, nil
	}

	for i := range run.Stages {
		result := &run.Stages[i]

		if err := e.execStage(ctx, result, opts.Background); err != nil {
			for j := i + 1; j < len(run.Stages); j++ {
				run.Stages[j].Status = StatusSkipped
			}
			run.FinishedAt = time.Now()
			logger.Error("Pipeline halted.", "stage", result.Name, "error", err)
			return run, err
		}
	}

	run.FinishedAt = time.Now()
	logger.Info("🏁 Pipeline finished.", "stages", len(run.Stages))
	return run, nil
}

// checkDependencies walks the requested sequence and verifies that each
// stage's declared predecessors appear earlier in it. Unknown names are
// caught here too, before anything launches.
func (e *Executor) checkDependencies(stages []string) error {
	requested := make(map[string]bool, len(stages))
	for _, name := range stages {
		stage, ok := e.registry.Stage(name)
		if !ok {
			return &registry.UnknownStageError{Name: name}
		}
		for _, dep := range stage.DependsOn {
			if !requested[dep] {
				return &UnsatisfiedDependencyError{Stage: name, Missing: dep}
			}
		}
		requested[name] = true
	}
	return nil
}

// execStage runs a single stage to a terminal state.
func (e *Executor) execStage(ctx context.Context, result *StageResult, background bool) error {
	logger := ctxlog.FromContext(ctx).With("stage", result.Name)

	result.Status = StatusRunning
	result.StartedAt = time.Now()
	logger.Info("▶️ Starting stage.", "command", result.Command.String())

	// Background mode only applies to the solver run; every other stage is
	// quick enough that detaching it buys nothing and loses the output.
	if background && result.Name == registry.StageRun {
		pid, err := e.launcher.Start(ctx, result.Command)
		result.FinishedAt = time.Now()
		if err != nil {
			result.Status = StatusFailed
			return &StageExecutionError{
				Stage:    result.Name,
				Command:  result.Command,
				ExitCode: exitCode(err),
				Err:      err,
			}
		}
		result.Status = StatusSucceeded
		result.PID = pid
		logger.Info("✅ Solver detached; its lifecycle is now external.", "pid", pid)
		return nil
	}

	output, err := e.launcher.Run(ctx, result.Command)
	result.Output = output
	result.FinishedAt = time.Now()
	if err != nil {
		result.Status = StatusFailed
		return &StageExecutionError{
			Stage:    result.Name,
			Command:  result.Command,
			ExitCode: exitCode(err),
			Output:   output,
			Err:      err,
		}
	}

	result.Status = StatusSucceeded
	logger.Info("✅ Finished stage.", "duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	return nil
}
