package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a disassembly dump
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the dump format from a file extension
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// IsDumpFile reports whether path has a dump extension
func IsDumpFile(path string) bool {
	_, ok := FormatForPath(path)
	return ok
}

// Parser reads disassembly dumps produced by the external disassembler
type Parser struct {
	// strict rejects unknown fields in YAML and JSON input
	strict bool
}

// NewParser creates a new dump parser
func NewParser() *Parser {
	return &Parser{}
}

// NewStrictParser creates a parser that rejects unknown fields
func NewStrictParser() *Parser {
	return &Parser{strict: true}
}

// ParseFile reads and parses a dump file
func (p *Parser) ParseFile(path string) (*Assembly, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported dump extension: %s", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump %s: %w", path, err)
	}

	asm, err := p.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dump %s: %w", path, err)
	}
	asm.Source = path
	return asm, nil
}

// Parse decodes, normalizes and validates a dump
func (p *Parser) Parse(data []byte, format Format) (*Assembly, error) {
	var asm Assembly

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(p.strict)
		if err := dec.Decode(&asm); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if p.strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&asm); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported dump format: %s", format)
	}

	Normalize(&asm)
	if err := asm.Validate(); err != nil {
		return nil, err
	}
	return &asm, nil
}

// ParseString parses a YAML dump held in a string
func (p *Parser) ParseString(source string) (*Assembly, error) {
	return p.Parse([]byte(source), FormatYAML)
}

// Normalize fills in flow kinds omitted by the dump
func Normalize(asm *Assembly) {
	for ti := range asm.Types {
		for mi := range asm.Types[ti].Methods {
			NormalizeMethod(&asm.Types[ti].Methods[mi])
		}
	}
}

// NormalizeMethod fills in flow kinds omitted for one method
func NormalizeMethod(m *MethodBody) {
	for i := range m.Instructions {
		if m.Instructions[i].Flow == "" {
			m.Instructions[i].Flow = FlowForOpCode(m.Instructions[i].OpCode)
		}
	}
}

// Validate checks the structural soundness of every method
func (a *Assembly) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("assembly name is required")
	}
	for _, t := range a.Types {
		for i := range t.Methods {
			if err := t.Methods[i].Validate(); err != nil {
				return fmt.Errorf("%s: %w", t.Methods[i].Name, err)
			}
		}
	}
	return nil
}

// Validate checks that offsets are ordered and that every reference resolves
func (m *MethodBody) Validate() error {
	known := make(map[int]bool, len(m.Instructions))
	for i, instr := range m.Instructions {
		if i > 0 && instr.Offset <= m.Instructions[i-1].Offset {
			return fmt.Errorf("instruction offsets must strictly increase: %d after %d",
				instr.Offset, m.Instructions[i-1].Offset)
		}
		if !instr.Flow.IsValid() {
			return fmt.Errorf("unknown flow %q at offset %d", instr.Flow, instr.Offset)
		}
		known[instr.Offset] = true
	}

	for _, instr := range m.Instructions {
		if !instr.Flow.HasTargets() && len(instr.Targets) > 0 {
			return fmt.Errorf("%s at offset %d does not take targets", instr.OpCode, instr.Offset)
		}
		// a switch with no cases only falls through
		if instr.Flow.HasTargets() && instr.Flow != FlowSwitch && len(instr.Targets) != 1 {
			return fmt.Errorf("%s at offset %d needs exactly one target, got %d",
				instr.OpCode, instr.Offset, len(instr.Targets))
		}
		for _, target := range instr.Targets {
			if !known[target] {
				return fmt.Errorf("branch target %d of offset %d is not an instruction", target, instr.Offset)
			}
		}
	}

	for _, h := range m.Handlers {
		if !known[h.HandlerStart] {
			return fmt.Errorf("handler start %d is not an instruction", h.HandlerStart)
		}
		if h.HandlerEnd != nil && !known[*h.HandlerEnd] {
			return fmt.Errorf("handler end %d is not an instruction", *h.HandlerEnd)
		}
	}
	return nil
}
