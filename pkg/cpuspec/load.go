package cpuspec

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/narpfel/yay-go/pkg/asmerr"
	"github.com/narpfel/yay-go/pkg/operand"
	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var embeddedCatalogs embed.FS

// rawCatalog is the typed shape of one CPU catalog document, decoded after
// inherit_from merging has already happened at the generic map level
// (spec.md §4.1).
type rawCatalog struct {
	InheritFrom       string                      `yaml:"inherit_from,omitempty"`
	Importing         map[string]string           `yaml:"importing,omitempty"`
	SignatureContents map[string]OperandClassDesc `yaml:"signature_contents"`
	Mnemonics         map[string][]Signature      `yaml:"mnemonics"`
	Registers         map[string]yaml.Node        `yaml:"registers,omitempty"`
	SFRs              map[string]yaml.Node        `yaml:"sfrs,omitempty"`
	NamedBits         map[string]yaml.Node        `yaml:"named_bits,omitempty"`
	// Singletons carries the handful of CPU-wide singleton operands (DPTR,
	// PC, A, C) through the same generic import mechanism instead of
	// hardcoding them outside the catalog; build stores them in
	// CpuSpec.Registers.
	Singletons map[string]yaml.Node `yaml:"singletons,omitempty"`
	Matchers   map[string]yaml.Node `yaml:"matchers,omitempty"`
	Converters map[string]yaml.Node `yaml:"converters,omitempty"`
	MacrosFrom map[string]yaml.Node `yaml:"macros_from,omitempty"`
}

// Load loads a CPU catalog by name, first checking the embedded built-in
// catalogs, then treating name as a filesystem path (spec.md §6: "CPU
// catalog... keyed by name or explicit path").
func Load(name string) (*CpuSpec, error) {
	raw, err := loadRawByName(name, map[string]bool{})
	if err != nil {
		return nil, err
	}
	return build(name, raw)
}

// LoadFile loads a CPU catalog from an explicit filesystem path.
func LoadFile(path string) (*CpuSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, asmerr.ConfigError{Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}
	raw, err := loadRawBytes(data, map[string]bool{})
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return build(name, raw)
}

func readCatalogBytes(name string) ([]byte, error) {
	if data, err := embeddedCatalogs.ReadFile("catalogs/" + name + ".yaml"); err == nil {
		return data, nil
	}
	if data, err := os.ReadFile(name); err == nil {
		return data, nil
	}
	return nil, asmerr.ConfigError{Reason: fmt.Sprintf("no CPU catalog named %q", name)}
}

// loadRawByName reads and fully inherit_from-resolves a catalog, returning
// the merged generic document (spec.md §4.1: "the loader recursively
// loads the parent and merges the child over it with deep-dict
// semantics").
func loadRawByName(name string, seen map[string]bool) (map[string]any, error) {
	if seen[name] {
		return nil, asmerr.ConfigError{Reason: fmt.Sprintf("inherit_from cycle involving %q", name)}
	}
	seen[name] = true

	data, err := readCatalogBytes(name)
	if err != nil {
		return nil, err
	}
	return loadRawBytes(data, seen)
}

func loadRawBytes(data []byte, seen map[string]bool) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, asmerr.ConfigError{Reason: fmt.Sprintf("parsing catalog: %v", err)}
	}

	parentName, hasParent := doc["inherit_from"].(string)
	if !hasParent {
		return doc, nil
	}
	delete(doc, "inherit_from")

	parent, err := loadRawByName(parentName, seen)
	if err != nil {
		return nil, fmt.Errorf("loading parent %q: %w", parentName, err)
	}
	return recursiveMerge(parent, doc).(map[string]any), nil
}

// recursiveMerge ports yay/helpers.py:recursive_merge verbatim: scalars
// overwrite, mappings merge key-wise, lists replace outright.
func recursiveMerge(base, update any) any {
	baseMap, baseOK := base.(map[string]any)
	updateMap, updateOK := update.(map[string]any)
	if !baseOK || !updateOK {
		return update
	}

	merged := make(map[string]any, len(baseMap)+len(updateMap))
	for k, v := range baseMap {
		merged[k] = v
	}
	for k, v := range updateMap {
		merged[k] = v
	}
	for k := range baseMap {
		if uv, ok := updateMap[k]; ok {
			merged[k] = recursiveMerge(baseMap[k], uv)
		}
	}
	return merged
}

// build re-encodes the merged generic document and decodes it into the
// typed rawCatalog shape, then resolves every import-spec section and the
// short-code reverse index to produce the final immutable CpuSpec
// (spec.md §4.1: "the loader builds the short_to_class reverse index and
// attaches it to the spec").
func build(name string, doc map[string]any) (*CpuSpec, error) {
	reencoded, err := yaml.Marshal(doc)
	if err != nil {
		return nil, asmerr.ConfigError{Reason: fmt.Sprintf("re-encoding merged catalog: %v", err)}
	}
	var raw rawCatalog
	if err := yaml.Unmarshal(reencoded, &raw); err != nil {
		return nil, asmerr.ConfigError{Reason: fmt.Sprintf("decoding merged catalog: %v", err)}
	}

	spec := &CpuSpec{
		Name:              name,
		Mnemonics:         raw.Mnemonics,
		SignatureContents: raw.SignatureContents,
		ShortToClass:      map[string]string{},
		Registers:         map[string]operand.Operand{},
		SFRs:              map[string]operand.Operand{},
		NamedBits:         map[string]operand.Operand{},
		Matchers:          map[string]MatcherFunc{},
		Converters:        map[string]ConverterFunc{},
	}

	for className, desc := range raw.SignatureContents {
		if desc.Short == "" {
			continue
		}
		if existing, exists := spec.ShortToClass[desc.Short]; exists {
			return nil, asmerr.ConfigError{
				Reason: fmt.Sprintf("short code %q used by both %q and %q", desc.Short, existing, className),
			}
		}
		spec.ShortToClass[desc.Short] = className
	}

	registers, err := resolveSection(raw.Registers, raw.Importing["registers"])
	if err != nil {
		return nil, fmt.Errorf("resolving registers: %w", err)
	}
	for name, v := range registers {
		op, ok := v.(operand.Operand)
		if !ok {
			return nil, asmerr.ConfigError{Reason: fmt.Sprintf("registers.%s did not resolve to an operand value", name)}
		}
		spec.Registers[name] = op
	}

	sfrs, err := resolveSection(raw.SFRs, raw.Importing["sfrs"])
	if err != nil {
		return nil, fmt.Errorf("resolving sfrs: %w", err)
	}
	for name, v := range sfrs {
		op, ok := v.(operand.Operand)
		if !ok {
			return nil, asmerr.ConfigError{Reason: fmt.Sprintf("sfrs.%s did not resolve to an operand value", name)}
		}
		spec.SFRs[name] = op
	}

	namedBits, err := resolveSection(raw.NamedBits, raw.Importing["named_bits"])
	if err != nil {
		return nil, fmt.Errorf("resolving named_bits: %w", err)
	}
	for name, v := range namedBits {
		op, ok := v.(operand.Operand)
		if !ok {
			return nil, asmerr.ConfigError{Reason: fmt.Sprintf("named_bits.%s did not resolve to an operand value", name)}
		}
		spec.NamedBits[name] = op
	}

	singletons, err := resolveSection(raw.Singletons, raw.Importing["singletons"])
	if err != nil {
		return nil, fmt.Errorf("resolving singletons: %w", err)
	}
	for name, v := range singletons {
		op, ok := v.(operand.Operand)
		if !ok {
			return nil, asmerr.ConfigError{Reason: fmt.Sprintf("singletons.%s did not resolve to an operand value", name)}
		}
		spec.Registers[name] = op
	}

	matchers, err := resolveSection(raw.Matchers, raw.Importing["matchers"])
	if err != nil {
		return nil, fmt.Errorf("resolving matchers: %w", err)
	}
	for name, v := range matchers {
		fn, ok := v.(MatcherFunc)
		if !ok {
			return nil, asmerr.ConfigError{Reason: fmt.Sprintf("matchers.%s is not a matcher function", name)}
		}
		spec.Matchers[name] = fn
	}

	converters, err := resolveSection(raw.Converters, raw.Importing["converters"])
	if err != nil {
		return nil, fmt.Errorf("resolving converters: %w", err)
	}
	for name, v := range converters {
		fn, ok := v.(ConverterFunc)
		if !ok {
			return nil, asmerr.ConfigError{Reason: fmt.Sprintf("converters.%s is not a converter function", name)}
		}
		spec.Converters[name] = fn
	}

	macrosFrom, err := resolveSection(raw.MacrosFrom, raw.Importing["macros_from"])
	if err != nil {
		return nil, fmt.Errorf("resolving macros_from: %w", err)
	}
	if name, ok := macrosFrom["name"].(string); ok {
		spec.MacrosFromName = name
	}

	for mnemonic, sigs := range spec.Mnemonics {
		for _, sig := range sigs {
			for _, byteTemplate := range sig.Opcode {
				if len(byteTemplate) != 1 && len(byteTemplate) != 8 {
					return nil, asmerr.ConfigError{
						Reason: fmt.Sprintf("mnemonic %q: byte template length must be 1 or 8", mnemonic),
					}
				}
			}
		}
	}

	return spec, nil
}
