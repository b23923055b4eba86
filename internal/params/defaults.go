package params

import (
	"errors"

	"github.com/zclconf/go-cty/cty"
)

// field declares a single parameter: its type, its built-in default, and
// the domain check applied by Validate.
type field struct {
	Type     cty.Type
	Default  cty.Value
	Required bool
	Check    func(cty.Value) error
}

func positive(val cty.Value) error {
	f, _ := val.AsBigFloat().Float64()
	if f <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func atLeastOne(val cty.Value) error {
	f, _ := val.AsBigFloat().Float64()
	if f < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

func nonNegative(val cty.Value) error {
	f, _ := val.AsBigFloat().Float64()
	if f < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func nonEmpty(val cty.Value) error {
	if val.AsString() == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func checkpointSet(val cty.Value) error {
	f, _ := val.AsBigFloat().Float64()
	if f != 1 && f != 2 {
		return errors.New("must be 1 or 2")
	}
	return nil
}

// schema is the full catalog of case parameters. Keys are stable dotted
// paths; the nesting mirrors the sections of a Nek5000 .par file plus the
// tooling sections the pipeline itself consumes.
var schema = map[string]field{
	"case.name": {
		Type: cty.String, Default: cty.StringVal("phill"),
		Required: true, Check: nonEmpty,
	},

	"mesh.tool": {
		Type: cty.String, Default: cty.StringVal("genmap"),
		Required: true, Check: nonEmpty,
	},
	"mesh.tolerance": {
		Type: cty.Number, Default: cty.NumberFloatVal(0.2),
		Required: true, Check: positive,
	},

	"compile.cc": {
		Type: cty.String, Default: cty.StringVal("mpicc"),
		Required: true, Check: nonEmpty,
	},
	"compile.fc": {
		Type: cty.String, Default: cty.StringVal("mpif77"),
		Required: true, Check: nonEmpty,
	},
	"compile.cflags": {
		Type: cty.String, Default: cty.StringVal("-O2"),
	},
	"compile.fflags": {
		Type: cty.String, Default: cty.StringVal("-O2"),
	},
	"compile.source_root": {
		Type: cty.String, Default: cty.NullVal(cty.String),
	},

	"run.nproc": {
		Type: cty.Number, Default: cty.NumberIntVal(4),
		Required: true, Check: atLeastOne,
	},

	"nek.general.dt": {
		Type: cty.Number, Default: cty.NumberFloatVal(0.001),
		Required: true, Check: positive,
	},
	"nek.general.end_time": {
		Type: cty.Number, Default: cty.NumberFloatVal(10),
		Check: nonNegative,
	},
	"nek.general.num_steps": {
		Type: cty.Number, Default: cty.NumberIntVal(0),
		Check: nonNegative,
	},
	"nek.general.start_from": {
		Type: cty.String, Default: cty.NullVal(cty.String),
	},
	"nek.chkpoint.read_chkpt": {
		Type: cty.Bool, Default: cty.False,
	},
	"nek.chkpoint.chkp_fnumber": {
		Type: cty.Number, Default: cty.NumberIntVal(1),
		Check: checkpointSet,
	},

	"output.session_id": {
		Type: cty.Number, Default: cty.NumberIntVal(0),
		Check: nonNegative,
	},

	"archive.path": {
		Type: cty.String, Default: cty.NullVal(cty.String),
	},
}
