package app

import "errors"

// Config holds everything an App instance needs to run one invocation.
type Config struct {
	CaseDir    string   // simulation case directory
	ParamsFile string   // optional HCL override file
	Sets       []string // raw key=value overrides, applied last

	Stages     []string // requested stage names; empty means canonical order
	DryRun     bool
	Background bool
	Nproc      int // shorthand override for run.nproc; 0 leaves it alone

	Restart       bool   // load params for a restart instead of defaults
	StartFrom     string // field file to restart from
	UseCheckpoint int    // multi-file checkpoint set to restart from
	HistoryLimit  int    // when positive, list recent runs and exit
	LogFormat     string
	LogLevel      string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.CaseDir == "" {
		return nil, errors.New("CaseDir is a required configuration field and cannot be empty")
	}
	if cfg.StartFrom != "" && cfg.UseCheckpoint != 0 {
		return nil, errors.New("use-start-from and use-checkpoint are mutually exclusive")
	}
	return &cfg, nil
}
