package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/philipcardiff/snek5000/internal/params"
	"github.com/philipcardiff/snek5000/internal/registry"
)

// stubLauncher records every launch and lets tests inject failures without
// touching the process table.
type stubLauncher struct {
	ran     []registry.Command
	started []registry.Command
	failOn  func(cmd registry.Command) error
}

func (s *stubLauncher) Run(ctx context.Context, cmd registry.Command) (string, error) {
	s.ran = append(s.ran, cmd)
	if s.failOn != nil {
		if err := s.failOn(cmd); err != nil {
			return "simulated tool output", err
		}
	}
	return "ok", nil
}

func (s *stubLauncher) Start(ctx context.Context, cmd registry.Command) (int, error) {
	s.started = append(s.started, cmd)
	return 4242, nil
}

func (s *stubLauncher) calls() int {
	return len(s.ran) + len(s.started)
}

func newExecutor(t *testing.T, launcher Launcher) *Executor {
	t.Helper()
	return New(registry.New(), params.CreateDefault(), t.TempDir(), launcher)
}

func TestValidateWithoutLaunching(t *testing.T) {
	launcher := &stubLauncher{}
	exec := newExecutor(t, launcher)

	var unknownErr *registry.UnknownStageError
	require.ErrorAs(t, exec.Validate([]string{"frobnicate"}), &unknownErr)
	assert.Equal(t, "frobnicate", unknownErr.Name)

	var depErr *UnsatisfiedDependencyError
	require.ErrorAs(t, exec.Validate([]string{"archive"}), &depErr)
	assert.Equal(t, "run", depErr.Missing)

	assert.NoError(t, exec.Validate(nil))
	assert.NoError(t, exec.Validate([]string{"mesh", "compile"}))

	// Validate alone never resolves or launches anything.
	assert.Equal(t, 0, launcher.calls())
}

func TestExecCanonicalOrder(t *testing.T) {
	launcher := &stubLauncher{}
	exec := newExecutor(t, launcher)

	run, err := exec.Exec(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, run.Stages, 4)

	var names []string
	for _, stage := range run.Stages {
		names = append(names, stage.Name)
		assert.Equal(t, StatusSucceeded, stage.Status)
	}
	assert.Equal(t, []string{"mesh", "compile", "run", "archive"}, names)
	assert.Equal(t, 4, launcher.calls())
	assert.NotEmpty(t, run.ID)
}

func TestExecUnknownStage(t *testing.T) {
	launcher := &stubLauncher{}
	exec := newExecutor(t, launcher)

	run, err := exec.Exec(context.Background(), Options{Stages: []string{"mesh", "frobnicate"}})
	assert.Nil(t, run)

	var unknownErr *registry.UnknownStageError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "frobnicate", unknownErr.Name)

	// Zero external invocations: a rejected request is a filesystem no-op.
	assert.Equal(t, 0, launcher.calls())
}

func TestExecDependencyChecks(t *testing.T) {
	t.Run("run alone fails naming compile", func(t *testing.T) {
		launcher := &stubLauncher{}
		exec := newExecutor(t, launcher)

		run, err := exec.Exec(context.Background(), Options{Stages: []string{"run"}})
		assert.Nil(t, run)

		var depErr *UnsatisfiedDependencyError
		require.ErrorAs(t, err, &depErr)
		assert.Equal(t, "run", depErr.Stage)
		assert.Equal(t, "compile", depErr.Missing)
		assert.Equal(t, 0, launcher.calls())
	})

	t.Run("explicitly ordered prefix succeeds", func(t *testing.T) {
		launcher := &stubLauncher{}
		exec := newExecutor(t, launcher)

		run, err := exec.Exec(context.Background(), Options{Stages: []string{"mesh", "compile", "run"}})
		require.NoError(t, err)
		require.Len(t, run.Stages, 3)
		for _, stage := range run.Stages {
			assert.Equal(t, StatusSucceeded, stage.Status)
		}
	})

	t.Run("clean alone is a deliberate abbreviated run", func(t *testing.T) {
		launcher := &stubLauncher{}
		exec := newExecutor(t, launcher)

		run, err := exec.Exec(context.Background(), Options{Stages: []string{"clean"}})
		require.NoError(t, err)
		require.Len(t, run.Stages, 1)
		assert.Equal(t, StatusSucceeded, run.Stages[0].Status)
	})

	t.Run("dependency satisfied by an earlier duplicate", func(t *testing.T) {
		launcher := &stubLauncher{}
		exec := newExecutor(t, launcher)

		run, err := exec.Exec(context.Background(), Options{Stages: []string{"mesh", "mesh", "compile"}})
		require.NoError(t, err)
		require.Len(t, run.Stages, 3)
		assert.Equal(t, 3, launcher.calls())
	})
}

func TestExecConfigurationError(t *testing.T) {
	launcher := &stubLauncher{}
	p := params.CreateDefault()
	require.NoError(t, p.Set("run.nproc", cty.NumberIntVal(-2)))
	exec := New(registry.New(), p, t.TempDir(), launcher)

	run, err := exec.Exec(context.Background(), Options{})
	assert.Nil(t, run)

	var cfgErr *params.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "run.nproc", cfgErr.Key)
	assert.Equal(t, 0, launcher.calls())
}

func TestExecDryRun(t *testing.T) {
	launcher := &stubLauncher{}
	exec := newExecutor(t, launcher)

	first, err := exec.Exec(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	second, err := exec.Exec(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	require.Len(t, first.Stages, 4)
	for i, stage := range first.Stages {
		assert.Equal(t, StatusPlanned, stage.Status)
		assert.NotEmpty(t, stage.Command.Argv)
		// Identical planned command sequence on repeat.
		assert.Equal(t, stage.Command, second.Stages[i].Command)
	}

	// Dry runs never launch anything.
	assert.Equal(t, 0, launcher.calls())
}

func TestExecFailureShortCircuit(t *testing.T) {
	launcher := &stubLauncher{
		failOn: func(cmd registry.Command) error {
			if strings.Contains(cmd.String(), "makenek") {
				return errors.New("exit status 2")
			}
			return nil
		},
	}
	exec := newExecutor(t, launcher)

	run, err := exec.Exec(context.Background(), Options{Stages: []string{"mesh", "compile", "run", "archive"}})
	require.NotNil(t, run)

	var stageErr *StageExecutionError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "compile", stageErr.Stage)
	assert.Equal(t, "simulated tool output", stageErr.Output)

	statuses := map[string]Status{}
	for _, stage := range run.Stages {
		statuses[stage.Name] = stage.Status
	}
	assert.Equal(t, StatusSucceeded, statuses["mesh"])
	assert.Equal(t, StatusFailed, statuses["compile"])
	assert.Equal(t, StatusSkipped, statuses["run"])
	assert.Equal(t, StatusSkipped, statuses["archive"])

	// Nothing past the failed stage was launched.
	assert.Equal(t, 2, launcher.calls())
}

func TestExecBackgroundReturnsImmediately(t *testing.T) {
	launcher := &stubLauncher{
		failOn: func(cmd registry.Command) error {
			// A foreground solver launch would block forever; it must never
			// reach the blocking path in background mode. t.Error, not
			// t.Fatal: this runs on the Exec goroutine.
			if strings.Contains(cmd.String(), "nek5000") {
				t.Error("run stage was launched in the foreground")
			}
			return nil
		},
	}
	exec := newExecutor(t, launcher)

	done := make(chan struct{})
	var run *Run
	var err error
	go func() {
		run, err = exec.Exec(context.Background(), Options{
			Stages:     []string{"mesh", "compile", "run"},
			Background: true,
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Exec did not return in bounded time with background mode")
	}

	require.NoError(t, err)
	require.Len(t, run.Stages, 3)
	last := run.Stages[2]
	assert.Equal(t, "run", last.Name)
	assert.Equal(t, StatusSucceeded, last.Status)
	assert.Equal(t, 4242, last.PID)
	require.Len(t, launcher.started, 1)
}

func TestExecBackgroundOnlyAppliesToRunStage(t *testing.T) {
	launcher := &stubLauncher{}
	exec := newExecutor(t, launcher)

	run, err := exec.Exec(context.Background(), Options{
		Stages:     []string{"mesh", "compile"},
		Background: true,
	})
	require.NoError(t, err)
	require.Len(t, run.Stages, 2)
	assert.Empty(t, launcher.started)
	assert.Len(t, launcher.ran, 2)
}
