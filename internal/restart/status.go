package restart

import (
	"fmt"
	"os"
	"path/filepath"
)

// Status classifies a case directory's readiness for a restart. The codes
// mirror HTTP response status codes, which map surprisingly well: 2xx is
// restartable, 4xx is not.
type Status int

const (
	// StatusOK: all prerequisites satisfied to restart.
	StatusOK Status = 200
	// StatusResetContent: multi-file restart found and field files exist;
	// restarting in the same session would overwrite them.
	StatusResetContent Status = 205
	// StatusPartialContent: field files exist but no multi-file restart.
	StatusPartialContent Status = 206
	// StatusNotFound: SIZE and/or the solver binary is missing.
	StatusNotFound Status = 404
	// StatusLocked: another pipeline invocation holds the case lock.
	StatusLocked Status = 423
	// StatusTooEarly: the pipeline was never executed in this directory.
	StatusTooEarly Status = 425
)

// Message returns the human description of the status.
func (s Status) Message() string {
	switch s {
	case StatusOK:
		return "OK: all prerequisites satisfied to restart"
	case StatusResetContent:
		return "Reset Content: multi-file restart found and field files exist; " +
			"archive the current session or restart in a new one"
	case StatusPartialContent:
		return "Partial Content: field files exist but no multi-file restart; " +
			"archive the current session or restart in a new one"
	case StatusNotFound:
		return "Not Found: SIZE and/or nek5000 is missing"
	case StatusLocked:
		return "Locked: the case directory is locked by another invocation"
	case StatusTooEarly:
		return "Too Early: the pipeline was never executed here"
	default:
		return "unknown status"
	}
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return fmt.Sprintf("%d %s", int(s), s.Message())
}

// GetStatus inspects a case directory and reports whether a restart can
// proceed. sessionID selects which session's field files to look at.
//
// The checks, in order: the pipeline state directory must exist (anything
// else means nothing ever ran), no lock files may be present, the SIZE
// file and solver binary must exist, and finally checkpoint and field
// files decide between OK, ResetContent and PartialContent.
func GetStatus(caseDir string, sessionID int) Status {
	stateDir := filepath.Join(caseDir, StateDirName)
	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		return StatusTooEarly
	}

	if locks, err := os.ReadDir(filepath.Join(stateDir, "locks")); err == nil && len(locks) > 0 {
		return StatusLocked
	}

	for _, required := range []string{"SIZE", "nek5000"} {
		if _, err := os.Stat(filepath.Join(caseDir, required)); err != nil {
			return StatusNotFound
		}
	}

	checkpoints, _ := filepath.Glob(filepath.Join(caseDir, "rs6*0.f?????"))
	sessionDir := filepath.Join(caseDir, SessionName(sessionID))
	fieldFiles, _ := filepath.Glob(filepath.Join(sessionDir, "*0.f?????"))

	switch {
	case len(checkpoints) > 0 && len(fieldFiles) > 0:
		return StatusResetContent
	case len(fieldFiles) > 0:
		return StatusPartialContent
	default:
		return StatusOK
	}
}

// SessionName formats the on-disk directory name for a session ID.
func SessionName(id int) string {
	return fmt.Sprintf("session_%02d", id)
}
