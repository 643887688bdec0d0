package program

import "fmt"

// entry is one registered program: the CPU it targets and its entry
// point. Registered programs are the Go stand-in for the source
// project's `.yay` file + `--main_class` discovery (spec.md's DSL surface
// is explicitly out of scope; this registry replaces "class in a source
// file" with "name in a package-level table").
type entry struct {
	cpuName string
	main    MainFunc
}

var registry = map[string]entry{}

// Register makes a program available to the CLI under name, targeting
// the named CPU catalog. Called from package init() in cmd/yay/programs.
func Register(name, cpuName string, main MainFunc) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("program: %q already registered", name))
	}
	registry[name] = entry{cpuName: cpuName, main: main}
}

// Names returns every registered program name.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Lookup returns the entry point and default CPU name registered under
// name, or ok=false if nothing is registered under that name.
func Lookup(name string) (cpuName string, main MainFunc, ok bool) {
	e, ok := registry[name]
	if !ok {
		return "", nil, false
	}
	return e.cpuName, e.main, true
}
