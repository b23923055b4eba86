package registry

import (
	"fmt"

	"github.com/philipcardiff/snek5000/internal/params"
)

// Command is one resolved external invocation: an argv vector, the working
// directory to launch it in, and any extra environment entries appended to
// the inherited environment.
type Command struct {
	Argv []string
	Dir  string
	Env  []string
}

// String renders the command the way a shell user would type it. Used for
// dry-run plans and failure reports, never re-parsed.
func (c Command) String() string {
	out := ""
	for i, arg := range c.Argv {
		if i > 0 {
			out += " "
		}
		out += maybeQuote(arg)
	}
	return out
}

func maybeQuote(arg string) string {
	for _, r := range arg {
		switch r {
		case ' ', '\t', '\n', '"', '\'', '|', '&', ';':
			return fmt.Sprintf("%q", arg)
		}
	}
	return arg
}

// Template renders a stage's command against the current parameter tree.
// Templates are pure: they read params and compute paths, nothing else.
type Template func(p *params.Params, caseDir string) (Command, error)

// Stage is one named unit of work in the pipeline.
type Stage struct {
	Name       string
	DependsOn  []string
	Idempotent bool
	Template   Template
}

// UnknownStageError reports a request for a stage name that is not in the
// catalog.
type UnknownStageError struct {
	Name string
}

// Error implements the error interface for UnknownStageError.
func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Name)
}

// Registry is the immutable catalog of stages. It is constructed once at
// startup and shared read-only into every executor; nothing mutates it
// afterwards, so concurrent reads need no locking.
type Registry struct {
	stages map[string]*Stage
	order  []string
}

// New builds the fixed stage catalog: mesh, compile, run, and archive form
// a total order, and clean stands alone so it can be requested at any point.
func New() *Registry {
	r := &Registry{stages: make(map[string]*Stage)}
	for _, stage := range []*Stage{
		{Name: StageMesh, Idempotent: true, Template: meshCommand},
		{Name: StageCompile, DependsOn: []string{StageMesh}, Idempotent: true, Template: compileCommand},
		{Name: StageRun, DependsOn: []string{StageCompile}, Template: runCommand},
		{Name: StageArchive, DependsOn: []string{StageRun}, Idempotent: true, Template: archiveCommand},
		{Name: StageClean, Idempotent: true, Template: cleanCommand},
	} {
		r.stages[stage.Name] = stage
		if stage.Name != StageClean {
			r.order = append(r.order, stage.Name)
		}
	}
	return r
}

// Stage returns the stage registered under name.
func (r *Registry) Stage(name string) (*Stage, bool) {
	stage, ok := r.stages[name]
	return stage, ok
}

// Resolve renders the named stage's command template against the given
// parameter tree.
func (r *Registry) Resolve(name string, p *params.Params, caseDir string) (Command, error) {
	stage, ok := r.stages[name]
	if !ok {
		return Command{}, &UnknownStageError{Name: name}
	}
	return stage.Template(p, caseDir)
}

// DependenciesOf returns the declared predecessor set of the named stage.
func (r *Registry) DependenciesOf(name string) ([]string, error) {
	stage, ok := r.stages[name]
	if !ok {
		return nil, &UnknownStageError{Name: name}
	}
	deps := make([]string, len(stage.DependsOn))
	copy(deps, stage.DependsOn)
	return deps, nil
}

// CanonicalOrder returns the full declared stage order, mesh through
// archive. Executing this sequence end to end satisfies every declared
// dependency. The clean stage has no place in the order; it is only ever
// run on explicit request.
func (r *Registry) CanonicalOrder() []string {
	order := make([]string, len(r.order))
	copy(order, r.order)
	return order
}
