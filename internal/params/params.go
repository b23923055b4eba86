// Package params implements the hierarchical parameter tree describing a
// single simulation case. Leaves are cty.Value so that values loaded from
// HCL case files, programmatic mutation, and command-line overrides all go
// through the same conversion path.
package params

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ConfigurationError reports an invalid or missing parameter value. It is
// returned by Validate and by Set before any stage runs.
type ConfigurationError struct {
	Key    string
	Reason string
}

// Error implements the error interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// Params is the parameter tree for one simulation case. Keys are dotted
// paths ("nek.general.dt"); the set of valid keys is fixed by the built-in
// schema. A Params is created once per case, mutated freely before the
// pipeline starts, and treated as read-only during execution.
type Params struct {
	values map[string]cty.Value
}

// CreateDefault returns a tree pre-populated with the solver defaults.
func CreateDefault() *Params {
	p := &Params{values: make(map[string]cty.Value, len(schema))}
	for key, field := range schema {
		p.values[key] = field.Default
	}
	return p
}

// Clone returns an independent copy of the tree. The executor snapshots
// params this way so that later caller mutation cannot affect a run.
func (p *Params) Clone() *Params {
	clone := &Params{values: make(map[string]cty.Value, len(p.values))}
	for key, val := range p.values {
		clone.values[key] = val
	}
	return clone
}

// Get returns the value stored at the given dotted key.
func (p *Params) Get(key string) (cty.Value, error) {
	val, ok := p.values[key]
	if !ok {
		return cty.NilVal, &ConfigurationError{Key: key, Reason: "unknown parameter"}
	}
	return val, nil
}

// Set stores a value at the given dotted key, converting it to the key's
// declared type. Unknown keys and inconvertible values are rejected.
func (p *Params) Set(key string, val cty.Value) error {
	field, ok := schema[key]
	if !ok {
		return &ConfigurationError{Key: key, Reason: "unknown parameter"}
	}

	converted, err := convert.Convert(val, field.Type)
	if err != nil {
		return &ConfigurationError{
			Key:    key,
			Reason: fmt.Sprintf("cannot convert %s to %s", val.Type().FriendlyName(), field.Type.FriendlyName()),
		}
	}

	p.values[key] = converted
	return nil
}

// Unset clears a key back to null. Required keys left null fail Validate.
func (p *Params) Unset(key string) error {
	field, ok := schema[key]
	if !ok {
		return &ConfigurationError{Key: key, Reason: "unknown parameter"}
	}
	p.values[key] = cty.NullVal(field.Type)
	return nil
}

// SetFromString parses a raw "key=value" style override, coercing the raw
// string through the key's declared type. This is the binding used by the
// CLI -set flag.
func (p *Params) SetFromString(key, raw string) error {
	if _, ok := schema[key]; !ok {
		return &ConfigurationError{Key: key, Reason: "unknown parameter"}
	}
	return p.Set(key, cty.StringVal(raw))
}

// Validate checks every required key for presence and every present value
// against its declared domain. The first violation is returned as a
// ConfigurationError.
func (p *Params) Validate() error {
	for _, key := range p.Keys() {
		field := schema[key]
		val := p.values[key]

		if val.IsNull() {
			if field.Required {
				return &ConfigurationError{Key: key, Reason: "required parameter is not set"}
			}
			continue
		}

		if field.Check != nil {
			if err := field.Check(val); err != nil {
				return &ConfigurationError{Key: key, Reason: err.Error()}
			}
		}
	}
	return nil
}

// Keys returns all parameter keys in sorted order.
func (p *Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for key := range p.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsSet reports whether the key holds a non-null value.
func (p *Params) IsSet(key string) bool {
	val, ok := p.values[key]
	return ok && !val.IsNull()
}

// String returns the string value at key. It panics on schema misuse, which
// is a programmer error: stage templates only read keys they declare.
func (p *Params) String(key string) string {
	var s string
	p.mustDecode(key, &s)
	return s
}

// Int returns the integer value at key.
func (p *Params) Int(key string) int {
	var i int
	p.mustDecode(key, &i)
	return i
}

// Float returns the float value at key.
func (p *Params) Float(key string) float64 {
	var f float64
	p.mustDecode(key, &f)
	return f
}

// Bool returns the boolean value at key.
func (p *Params) Bool(key string) bool {
	var b bool
	p.mustDecode(key, &b)
	return b
}

func (p *Params) mustDecode(key string, target any) {
	val, ok := p.values[key]
	if !ok {
		panic(fmt.Sprintf("params: unknown key %q", key))
	}
	if err := gocty.FromCtyValue(val, target); err != nil {
		panic(fmt.Sprintf("params: decoding %q: %v", key, err))
	}
}
