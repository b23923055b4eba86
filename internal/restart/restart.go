// Package restart loads an existing case for continuation: it verifies the
// directory's status, allocates the next session, and adjusts the
// parameter tree so the solver picks up from a field file or a multi-file
// checkpoint.
package restart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/philipcardiff/snek5000/internal/casefile"
	"github.com/philipcardiff/snek5000/internal/ctxlog"
	"github.com/philipcardiff/snek5000/internal/params"
)

// StateDirName is the pipeline's state directory inside a case, holding
// the run history database and lock files.
const StateDirName = ".snek"

// ParamsFileName is the saved parameter snapshot inside a case directory.
const ParamsFileName = "params_simul.hcl"

// Error reports why a restart cannot proceed. Status is zero when the
// failure is not a directory-status problem.
type Error struct {
	Status Status
	Msg    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cannot restart: %s", e.Status)
	}
	return "cannot restart: " + e.Msg
}

// Options controls LoadForRestart.
type Options struct {
	// StartFrom names a field file to restart from. Mutually exclusive
	// with Checkpoint.
	StartFrom string
	// Checkpoint selects multi-file checkpoint set 1 or 2; zero means
	// unset. Mutually exclusive with StartFrom.
	Checkpoint int
	// SessionID selects which session to look for restart files in; a
	// negative value means the last one recorded in the params snapshot.
	SessionID int
	// SkipVerify disables the directory status check.
	SkipVerify bool
	// DryRun computes the next session and mutates the parameters without
	// creating the session directory or any symlink on disk.
	DryRun bool
}

// LoadForRestart loads the saved parameters of an existing case, allocates
// the next session directory, and mutates the parameters in memory for the
// requested kind of restart. Nothing is written back to the params
// snapshot; the next real pipeline run does that.
func LoadForRestart(ctx context.Context, caseDir string, opts Options) (*params.Params, error) {
	logger := ctxlog.FromContext(ctx)

	p := params.CreateDefault()
	snapshot := filepath.Join(caseDir, ParamsFileName)
	if _, err := os.Stat(snapshot); err == nil {
		if err := p.LoadFile(snapshot); err != nil {
			return nil, &Error{Msg: err.Error()}
		}
	}

	sessionID := opts.SessionID
	if sessionID < 0 {
		sessionID = p.Int("output.session_id")
	}

	status := GetStatus(caseDir, sessionID)
	if !opts.SkipVerify && status >= 400 {
		return nil, &Error{Status: status}
	}
	logger.Info("Case status checked.", "status", status.String())

	if opts.StartFrom != "" && opts.Checkpoint != 0 {
		return nil, &Error{Msg: "options StartFrom and Checkpoint are mutually exclusive; use only one at a time"}
	}

	oldSession := SessionName(sessionID)
	newPath, newID := casefile.NextPathSuffix(filepath.Join(caseDir, "session"))
	if err := p.Set("output.session_id", cty.NumberIntVal(int64(newID))); err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if err := os.Mkdir(newPath, 0o755); err != nil {
			return nil, &Error{Msg: fmt.Sprintf("failed to create session dir: %v", err)}
		}
	}

	switch {
	case opts.StartFrom != "":
		source := filepath.Join(caseDir, oldSession, opts.StartFrom)
		if _, err := os.Stat(source); err != nil {
			return nil, &Error{Msg: fmt.Sprintf("restart file %s not found", opts.StartFrom)}
		}
		if err := p.Set("nek.general.start_from", cty.StringVal(opts.StartFrom)); err != nil {
			return nil, err
		}
		if !opts.DryRun {
			// Relative symlink from the new session back into the old one.
			link := filepath.Join(newPath, opts.StartFrom)
			target := filepath.Join("..", oldSession, opts.StartFrom)
			logger.Debug("Symlinking restart file.", "link", link, "target", target)
			if err := os.Symlink(target, link); err != nil {
				return nil, &Error{Msg: fmt.Sprintf("failed to link restart file: %v", err)}
			}
		}

	case opts.Checkpoint != 0:
		if opts.Checkpoint != 1 && opts.Checkpoint != 2 {
			return nil, &Error{Msg: fmt.Sprintf("restart checkpoint %d is invalid", opts.Checkpoint)}
		}
		if status != StatusOK && status != StatusResetContent {
			return nil, &Error{Msg: fmt.Sprintf("restart checkpoint %d does not exist", opts.Checkpoint)}
		}
		if err := p.Set("nek.chkpoint.chkp_fnumber", cty.NumberIntVal(int64(opts.Checkpoint))); err != nil {
			return nil, err
		}
		if err := p.Set("nek.chkpoint.read_chkpt", cty.True); err != nil {
			return nil, err
		}

	default:
		logger.Info("No restart files requested; this will be a fresh simulation in a new session.")
	}

	return p, nil
}
