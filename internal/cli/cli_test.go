package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		out := &bytes.Buffer{}
		cfg, shouldExit, err := Parse(nil, out)
		require.NoError(t, err)
		require.False(t, shouldExit)

		assert.Equal(t, ".", cfg.CaseDir)
		assert.Empty(t, cfg.Stages)
		assert.False(t, cfg.DryRun)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("stages are positional", func(t *testing.T) {
		out := &bytes.Buffer{}
		cfg, _, err := Parse([]string{"-dry-run", "mesh", "compile"}, out)
		require.NoError(t, err)

		assert.True(t, cfg.DryRun)
		assert.Equal(t, []string{"mesh", "compile"}, cfg.Stages)
	})

	t.Run("shorthand case flag wins", func(t *testing.T) {
		out := &bytes.Buffer{}
		cfg, _, err := Parse([]string{"-case", "/a", "-c", "/b"}, out)
		require.NoError(t, err)
		assert.Equal(t, "/b", cfg.CaseDir)
	})

	t.Run("set flag is repeatable", func(t *testing.T) {
		out := &bytes.Buffer{}
		cfg, _, err := Parse([]string{"-set", "run.nproc=8", "-set", "nek.general.dt=0.01"}, out)
		require.NoError(t, err)
		assert.Equal(t, []string{"run.nproc=8", "nek.general.dt=0.01"}, cfg.Sets)
	})

	t.Run("help requests a clean exit", func(t *testing.T) {
		out := &bytes.Buffer{}
		_, shouldExit, err := Parse([]string{"-h"}, out)
		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("invalid log format", func(t *testing.T) {
		out := &bytes.Buffer{}
		_, _, err := Parse([]string{"-log-format", "xml"}, out)

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		out := &bytes.Buffer{}
		_, _, err := Parse([]string{"-log-level", "loud"}, out)

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("mutually exclusive restart options", func(t *testing.T) {
		out := &bytes.Buffer{}
		_, _, err := Parse([]string{"-use-start-from", "phill0.f00001", "-use-checkpoint", "1"}, out)

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "mutually exclusive")
	})
}
