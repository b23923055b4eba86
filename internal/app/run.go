package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/philipcardiff/snek5000/internal/casefile"
	"github.com/philipcardiff/snek5000/internal/command"
	"github.com/philipcardiff/snek5000/internal/ctxlog"
	"github.com/philipcardiff/snek5000/internal/history"
	"github.com/philipcardiff/snek5000/internal/pipeline"
	"github.com/philipcardiff/snek5000/internal/registry"
	"github.com/philipcardiff/snek5000/internal/restart"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if cfg.HistoryLimit > 0 {
		return a.showHistory(cfg.HistoryLimit)
	}

	exec := pipeline.New(a.registry, a.params, a.caseDir, command.Local{})

	// Validate before prepareCase: a request the executor would reject must
	// not leave a state dir or parameter snapshot behind.
	if err := exec.Validate(cfg.Stages); err != nil {
		return err
	}

	if !cfg.DryRun {
		if err := a.prepareCase(ctx, cfg); err != nil {
			return err
		}
	}

	a.logger.Info("🚀 Starting pipeline.", "case", a.caseDir, "dryrun", cfg.DryRun)
	run, execErr := exec.Exec(ctx, pipeline.Options{
		Stages:     cfg.Stages,
		DryRun:     cfg.DryRun,
		Background: cfg.Background,
	})

	if run != nil && cfg.DryRun {
		a.printPlan(run)
	}
	if run != nil && !cfg.DryRun {
		a.recordHistory(run)
	}

	if execErr != nil {
		return fmt.Errorf("execution failed: %w", execErr)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// prepareCase writes the on-disk record a real run leaves behind before any
// stage launches: the state directory, the parameter snapshot, and the
// session marker the solver reads.
func (a *App) prepareCase(ctx context.Context, cfg *Config) error {
	logger := ctxlog.FromContext(ctx)

	stateDir := filepath.Join(a.caseDir, restart.StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	snapshot := filepath.Join(a.caseDir, restart.ParamsFileName)
	if err := a.params.Save(snapshot); err != nil {
		return err
	}
	logger.Debug("Parameter snapshot written.", "path", snapshot)

	if !requestsRun(cfg.Stages, a.registry) {
		return nil
	}

	caseName := a.params.String("case.name")
	session := restart.SessionName(a.params.Int("output.session_id"))
	par := caseName + ".par"
	if _, err := os.Stat(filepath.Join(a.caseDir, par)); err != nil {
		// No par file yet; the solver run will fail on its own terms and
		// tell the user a lot more than we could here.
		logger.Debug("No par file found, skipping session setup.", "par", par)
		return nil
	}

	if err := casefile.CreateSession(a.caseDir, caseName, session, caseName+".re2", caseName+".ma2", par); err != nil {
		return err
	}
	logger.Debug("Session prepared.", "session", session)
	return nil
}

// requestsRun reports whether the effective stage sequence includes the
// run stage.
func requestsRun(stages []string, reg *registry.Registry) bool {
	if len(stages) == 0 {
		stages = reg.CanonicalOrder()
	}
	for _, name := range stages {
		if name == registry.StageRun {
			return true
		}
	}
	return false
}

// printPlan writes the dry-run plan, one resolved command per requested
// stage, in request order.
func (a *App) printPlan(run *pipeline.Run) {
	for _, stage := range run.Stages {
		fmt.Fprintf(a.outW, "%-8s %s\n", stage.Name, stage.Command.String())
	}
}

// recordHistory persists the run record. History is best effort: a failure
// to record must never fail a pipeline that already did its work.
func (a *App) recordHistory(run *pipeline.Run) {
	store, err := history.Open(filepath.Join(a.caseDir, restart.StateDirName, "history.db"))
	if err != nil {
		a.logger.Warn("Failed to open history store.", "error", err)
		return
	}
	defer store.Close()

	if err := store.SaveRun(run); err != nil {
		a.logger.Warn("Failed to record run history.", "error", err)
	}
}

// showHistory lists the most recent runs of this case.
func (a *App) showHistory(limit int) error {
	dbPath := filepath.Join(a.caseDir, restart.StateDirName, "history.db")
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintln(a.outW, "no runs recorded")
		return nil
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.outW, "no runs recorded")
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(a.outW, "%s  %s\n", rec.StartedAt.Format("2006-01-02 15:04:05"), rec.ID)
		for _, stage := range rec.Stages {
			fmt.Fprintf(a.outW, "    %-8s %-9s %s\n", stage.Stage, stage.Status, stage.Command)
		}
	}
	return nil
}
