package cpuspec

import (
	"fmt"
	"sort"

	"github.com/narpfel/yay-go/pkg/asmerr"
	"gopkg.in/yaml.v3"
)

// ImportFunc is a Go stand-in for the dynamically imported Python
// callables the original catalog format references by name (spec.md
// §4.1), used for import specs that carry `call`/`call_many`. Catalogs
// never embed code; they only name a value already registered with
// RegisterImport.
type ImportFunc func(args []any) (any, error)

// importRegistry maps a symbol name to the Go value it stands for. Most
// entries are plain values (a MatcherFunc, a ConverterFunc, a singleton
// operand) returned as-is when an import spec has neither `call` nor
// `call_many`; entries meant to be invoked (e.g. a register/SFR factory)
// are registered as an ImportFunc.
var importRegistry = map[string]any{}

// RegisterImport makes value available to CPU catalogs under name. Called
// from package init() in files that provide built-in matchers, converters
// and register/SFR factories (mirrors yay's `yay.cpus.MCS_51.matchers`
// module being importable by name from YAML).
func RegisterImport(name string, value any) {
	if _, exists := importRegistry[name]; exists {
		panic(fmt.Sprintf("cpuspec: import %q already registered", name))
	}
	importRegistry[name] = value
}

// importSpec is the YAML shape `{import, from, call, call_many, with_key}`
// described in spec.md §4.1.
type importSpec struct {
	Import   string           `yaml:"import"`
	From     string           `yaml:"from,omitempty"`
	Call     []any            `yaml:"call,omitempty"`
	CallMany map[string][]any `yaml:"call_many,omitempty"`
	WithKey  bool             `yaml:"with_key,omitempty"`
}

func decodeImportSpec(node *yaml.Node) (*importSpec, bool) {
	if node.Kind != yaml.MappingNode {
		return nil, false
	}
	var probe struct {
		Import string `yaml:"import"`
	}
	if err := node.Decode(&probe); err != nil || probe.Import == "" {
		return nil, false
	}
	var spec importSpec
	if err := node.Decode(&spec); err != nil {
		return nil, false
	}
	return &spec, true
}

// resolveSection applies the import-resolution policy of spec.md §4.1 to
// every entry of a catalog section, returning the resulting name->value
// map. call_many results are flattened: each call_many key becomes its own
// key of the returned map, and the section key that held the import spec
// does not appear. This is what makes e.g. `registers: {all: {import:
// make_register, call_many: {R0: [0, true], ...}}}` produce directly
// addressable `R0`..`R7` entries.
func resolveSection(section map[string]yaml.Node, defaultFrom string) (map[string]any, error) {
	result := make(map[string]any, len(section))

	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		node := section[name]
		spec, isImport := decodeImportSpec(&node)
		if !isImport {
			var raw any
			if err := node.Decode(&raw); err != nil {
				return nil, fmt.Errorf("cpuspec: decoding %q: %w", name, err)
			}
			result[name] = raw
			continue
		}
		from := spec.From
		if from == "" {
			from = defaultFrom
		}
		symbol, ok := importRegistry[spec.Import]
		if !ok {
			return nil, asmerr.ConfigError{Reason: fmt.Sprintf("unknown import %q (from %q) referenced by %q", spec.Import, from, name)}
		}

		switch {
		case spec.CallMany != nil:
			fn, ok := symbol.(ImportFunc)
			if !ok {
				return nil, asmerr.ConfigError{Reason: fmt.Sprintf("import %q is not callable but call_many was given", spec.Import)}
			}
			callKeys := make([]string, 0, len(spec.CallMany))
			for k := range spec.CallMany {
				callKeys = append(callKeys, k)
			}
			sort.Strings(callKeys)
			for _, entryKey := range callKeys {
				args := spec.CallMany[entryKey]
				callArgs := args
				if spec.WithKey {
					callArgs = append([]any{entryKey}, args...)
				}
				value, err := fn(callArgs)
				if err != nil {
					return nil, fmt.Errorf("cpuspec: call_many %s[%s]: %w", spec.Import, entryKey, err)
				}
				result[entryKey] = value
			}
		case spec.Call != nil:
			fn, ok := symbol.(ImportFunc)
			if !ok {
				return nil, asmerr.ConfigError{Reason: fmt.Sprintf("import %q is not callable but call was given", spec.Import)}
			}
			value, err := fn(spec.Call)
			if err != nil {
				return nil, fmt.Errorf("cpuspec: call %s: %w", spec.Import, err)
			}
			result[name] = value
		default:
			result[name] = symbol
		}
	}

	return result, nil
}
