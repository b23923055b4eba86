// Package casefile provides file system helpers for simulation case
// directories: suffixed path allocation and session setup.
package casefile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NextPath returns a path that does not yet exist, derived from old by
// appending a two-digit integer suffix before the extensions:
//
//	session       -> session_00, session_01, ...
//	out.tar.gz    -> out_00.tar.gz, ...
//
// When forceSuffix is false and old itself does not exist, old is returned
// unchanged.
func NextPath(old string, forceSuffix bool) string {
	path, _ := nextPath(old, forceSuffix)
	return path
}

// NextPathSuffix always suffixes and additionally returns the integer that
// was chosen. Restart uses it to allocate session IDs.
func NextPathSuffix(old string) (string, int) {
	path, suffix := nextPath(old, true)
	return path, suffix
}

func nextPath(old string, forceSuffix bool) (string, int) {
	if !forceSuffix {
		if _, err := os.Stat(old); os.IsNotExist(err) {
			return old, -1
		}
	}

	for i := 0; ; i++ {
		candidate := intSuffix(old, i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, i
		}
	}
}

// intSuffix inserts _NN before the full extension chain, so multi-part
// extensions like .tar.gz stay intact.
func intSuffix(path string, i int) string {
	base := filepath.Base(path)

	exts := ""
	for {
		ext := filepath.Ext(base)
		if ext == "" {
			break
		}
		exts = ext + exts
		base = strings.TrimSuffix(base, ext)
	}

	return filepath.Join(filepath.Dir(path), fmt.Sprintf("%s_%02d%s", base, i, exts))
}

// CreateSession prepares a session directory inside the case: it writes the
// SESSION.NAME marker the solver reads at startup, symlinks the mesh and
// mapping files into the session with relative links, and copies the par
// file so a re-run does not require recompiling.
func CreateSession(caseDir, caseName, sessionName, re2, ma2, par string) error {
	sessionDir := filepath.Join(caseDir, sessionName)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	// Relative paths inside SESSION.NAME keep lines under the solver's 132
	// character limit.
	marker := fmt.Sprintf("%s\n./%s\n", caseName, sessionName)
	if err := os.WriteFile(filepath.Join(caseDir, "SESSION.NAME"), []byte(marker), 0o644); err != nil {
		return fmt.Errorf("failed to write SESSION.NAME: %w", err)
	}

	for _, file := range []string{re2, ma2} {
		link := filepath.Join(sessionDir, file)
		if err := os.Symlink(filepath.Join("..", file), link); err != nil && !os.IsExist(err) {
			return fmt.Errorf("failed to link %s into session: %w", file, err)
		}
	}

	if err := copyFile(filepath.Join(caseDir, par), filepath.Join(sessionDir, par)); err != nil {
		return fmt.Errorf("failed to copy par file: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
