package cpuspec

import (
	"fmt"

	"github.com/narpfel/yay-go/pkg/asmerr"
	"github.com/narpfel/yay-go/pkg/operand"
	"gopkg.in/yaml.v3"
)

// OpcodeByte is one output byte's template (spec.md §3): either a single
// literal/slot-name cell (length 1) or eight bit-format cells (length 8).
type OpcodeByte []string

// UnmarshalYAML accepts a YAML sequence whose scalars may be integers
// (literal byte values) or strings (slot names / bit-format cells like
// "r2"), normalizing everything to its string form for later parsing by
// pkg/emit. Enforces the length-1/length-8 rule from spec.md §3.
func (b *OpcodeByte) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return asmerr.ConfigError{Reason: "opcode byte template must be a sequence"}
	}
	cells := make([]string, 0, len(node.Content))
	for _, cell := range node.Content {
		cells = append(cells, cell.Value)
	}
	if len(cells) != 1 && len(cells) != 8 {
		return asmerr.ConfigError{
			Reason: fmt.Sprintf("`byte_format` length must be either 1 or 8, not %d", len(cells)),
		}
	}
	*b = cells
	return nil
}

// Signature is one allowed operand-class tuple for a mnemonic paired with
// its opcode template (spec.md §3).
type Signature struct {
	Operands []string     `yaml:"signature"`
	Opcode   []OpcodeByte `yaml:"opcode"`
}

// Size is the number of bytes this signature's opcode template produces.
func (s Signature) Size() int { return len(s.Opcode) }

// OperandClassDesc describes one operand-class entry of
// `signature_contents`: its bit-template short code and the other classes
// whose values may substitute for it (spec.md §3).
type OperandClassDesc struct {
	Short        string   `yaml:"short"`
	Alternatives []string `yaml:"alternatives,omitempty"`
}

// ConverterContext is the minimal view of an in-flight instruction a
// converter needs: its final byte position, its size, and the program's
// label table. Implemented in pkg/program by an Instruction paired with its
// Program (spec.md §4.4/§4.6).
type ConverterContext interface {
	Position() int
	Size() int
	LookupLabel(name string) (int, bool)
	MnemonicName() string
}

// ConverterFunc implements one `<to>_from_<from>` alternative-type
// conversion (spec.md §3/§4.4), e.g. `relative_from_addr16`. value is the
// operand bound to the substituted slot (an Immediate/Immediate16/Label, or
// the accumulator or a register for `direct`, depending on `from`).
type ConverterFunc func(ctx ConverterContext, value operand.Operand) (int, error)

// MatcherFunc implements one `is_<class>` classification predicate
// (spec.md §4.2).
type MatcherFunc func(v operand.Operand, fromAlternative bool) bool

// CpuSpec is the immutable, fully resolved CPU description produced by
// Load/LoadFile (spec.md §3).
type CpuSpec struct {
	Name              string
	Mnemonics         map[string][]Signature
	SignatureContents map[string]OperandClassDesc
	ShortToClass      map[string]string
	Registers         map[string]operand.Operand
	SFRs              map[string]operand.Operand
	NamedBits         map[string]operand.Operand
	Matchers          map[string]MatcherFunc
	Converters        map[string]ConverterFunc
	MacrosFromName    string
}

// Matches implements spec.md §4.3 step 3: does arg satisfy class directly,
// or via one of its declared alternatives? Returns the class that actually
// matched (== class itself, or the alternative) so the caller can record
// `alternatives_taken`.
func (c *CpuSpec) Matches(class string, arg operand.Operand) (matchedClass string, ok bool) {
	if c.classifies(class, arg, false) {
		return class, true
	}
	desc := c.SignatureContents[class]
	for _, alt := range desc.Alternatives {
		if c.classifies(alt, arg, true) {
			return alt, true
		}
	}
	return "", false
}

func (c *CpuSpec) classifies(class string, arg operand.Operand, fromAlternative bool) bool {
	if fn, ok := c.Matchers[class]; ok {
		return fn(arg, fromAlternative)
	}
	return operand.Classify(class, arg, fromAlternative)
}

// Convert runs the `<to>_from_<from>` converter registered for this
// substitution, per spec.md §4.4.
func (c *CpuSpec) Convert(to, from string, ctx ConverterContext, value operand.Operand) (int, error) {
	fn, ok := c.Converters[fmt.Sprintf("%s_from_%s", to, from)]
	if !ok {
		return 0, asmerr.ConfigError{Reason: fmt.Sprintf("no converter %s_from_%s", to, from)}
	}
	return fn(ctx, value)
}
