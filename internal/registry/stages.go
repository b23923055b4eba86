package registry

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/philipcardiff/snek5000/internal/casefile"
	"github.com/philipcardiff/snek5000/internal/params"
)

// Stable, case-sensitive stage identifiers. These form the public
// vocabulary of the pipeline.
const (
	StageMesh    = "mesh"
	StageCompile = "compile"
	StageRun     = "run"
	StageArchive = "archive"
	StageClean   = "clean"
)

// meshCommand drives the mesh/mapping tool. genmap reads its answers from
// stdin, so the invocation is wrapped in a shell the same way the original
// workflow rules scripted it.
func meshCommand(p *params.Params, caseDir string) (Command, error) {
	tool := p.String("mesh.tool")
	name := p.String("case.name")
	tol := strconv.FormatFloat(p.Float("mesh.tolerance"), 'g', -1, 64)

	script := fmt.Sprintf("printf '%%s\\n%%s\\n' %s %s | %s", name, tol, tool)
	return Command{
		Argv: []string{"sh", "-c", script},
		Dir:  caseDir,
	}, nil
}

// compileCommand builds the solver binary with makenek. Compiler choices
// and flags pass through the environment; the executor does not interpret
// them.
func compileCommand(p *params.Params, caseDir string) (Command, error) {
	makenek := "makenek"
	env := []string{
		"CC=" + p.String("compile.cc"),
		"FC=" + p.String("compile.fc"),
		"CFLAGS=" + p.String("compile.cflags"),
		"FFLAGS=" + p.String("compile.fflags"),
	}
	if p.IsSet("compile.source_root") {
		root := p.String("compile.source_root")
		makenek = filepath.Join(root, "bin", "makenek")
		env = append(env, "NEK_SOURCE_ROOT="+root)
	}

	return Command{
		Argv: []string{makenek, p.String("case.name")},
		Dir:  caseDir,
		Env:  env,
	}, nil
}

// runCommand launches the solver, under mpiexec when more than one process
// is requested.
func runCommand(p *params.Params, caseDir string) (Command, error) {
	nproc := p.Int("run.nproc")
	if nproc > 1 {
		return Command{
			Argv: []string{"mpiexec", "-n", strconv.Itoa(nproc), "./nek5000"},
			Dir:  caseDir,
		}, nil
	}
	return Command{
		Argv: []string{"./nek5000"},
		Dir:  caseDir,
	}, nil
}

// archiveCommand bundles the current session directory into a tarball. The
// default name gets an integer suffix when an archive of the same session
// already exists; an explicit archive.path is taken literally.
func archiveCommand(p *params.Params, caseDir string) (Command, error) {
	session := fmt.Sprintf("session_%02d", p.Int("output.session_id"))

	archive := fmt.Sprintf("%s-%s.tar.gz", p.String("case.name"), session)
	archive = filepath.Base(casefile.NextPath(filepath.Join(caseDir, archive), false))
	if p.IsSet("archive.path") {
		archive = p.String("archive.path")
	}

	return Command{
		Argv: []string{"tar", "-czf", archive, session},
		Dir:  caseDir,
	}, nil
}

// cleanCommand removes generated artifacts: the build tree, the solver
// binary, field/restart files and the session marker. Source files and
// archives are left alone.
func cleanCommand(p *params.Params, caseDir string) (Command, error) {
	return Command{
		Argv: []string{"sh", "-c", "rm -rf obj nek5000 *0.f????? SESSION.NAME build.log compiler.out"},
		Dir:  caseDir,
	}, nil
}
