package params

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// LoadFile merges an HCL case file into the tree. Nested blocks map onto
// dotted key prefixes, so
//
//	run { nproc = 8 }
//
// overrides "run.nproc". Unknown keys are rejected rather than ignored;
// a typo in a case file must not silently fall back to a default.
func (p *Params) LoadFile(path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse params file %s: %w", path, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return fmt.Errorf("unexpected body type in params file %s", path)
	}
	return p.mergeBody(body, "")
}

func (p *Params) mergeBody(body *hclsyntax.Body, prefix string) error {
	for name, attr := range body.Attributes {
		key := joinKey(prefix, name)
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("failed to evaluate %s: %w", key, diags)
		}
		if err := p.Set(key, val); err != nil {
			return err
		}
	}
	for _, block := range body.Blocks {
		if len(block.Labels) > 0 {
			return &ConfigurationError{
				Key:    joinKey(prefix, block.Type),
				Reason: "parameter blocks must not carry labels",
			}
		}
		if err := p.mergeBody(block.Body, joinKey(prefix, block.Type)); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the tree as an HCL file, one block per section with null
// values omitted. The output is stable across calls so that a saved
// snapshot can be diffed and reloaded.
func (p *Params) Save(path string) error {
	file := hclwrite.NewEmptyFile()
	p.writeBody(file.Body(), "")

	if err := os.WriteFile(path, hclwrite.Format(file.Bytes()), 0o644); err != nil {
		return fmt.Errorf("failed to write params file: %w", err)
	}
	return nil
}

func (p *Params) writeBody(body *hclwrite.Body, prefix string) {
	var attrs, groups []string
	seen := make(map[string]bool)

	for _, key := range p.Keys() {
		rest := key
		if prefix != "" {
			if !strings.HasPrefix(key, prefix+".") {
				continue
			}
			rest = strings.TrimPrefix(key, prefix+".")
		}
		if i := strings.IndexByte(rest, '.'); i < 0 {
			attrs = append(attrs, rest)
		} else if group := rest[:i]; !seen[group] {
			seen[group] = true
			groups = append(groups, group)
		}
	}

	for _, name := range attrs {
		val := p.values[joinKey(prefix, name)]
		if val.IsNull() {
			continue
		}
		body.SetAttributeValue(name, val)
	}
	for _, group := range groups {
		block := body.AppendNewBlock(group, nil)
		p.writeBody(block.Body(), joinKey(prefix, group))
	}
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
