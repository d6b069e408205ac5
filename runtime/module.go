package runtime

import "github.com/wippyai/wasm-engine/engine"

// Module is a decoded and validated binary, ready to Instantiate against
// a set of imports.
type Module struct {
	runtime *Runtime
	vi      *engine.ValidationInfo
}

// Export names one item a Module makes available, and its kind.
type Export struct {
	Name string
	Kind engine.ExternKind
}

// Exports lists every export this module declares.
func (m *Module) Exports() []Export {
	out := make([]Export, len(m.vi.Exports))
	for i, ed := range m.vi.Exports {
		out[i] = Export{Name: ed.Name, Kind: ed.Kind}
	}
	return out
}

// Funcs, Tables, Mems, and Globals filter Exports down to one kind, for
// embedders introspecting a module before wiring imports (cmd/run's
// -list flag walks these).
func (m *Module) Funcs() []Export   { return m.filterExports(engine.ExternFunc) }
func (m *Module) Tables() []Export  { return m.filterExports(engine.ExternTable) }
func (m *Module) Mems() []Export    { return m.filterExports(engine.ExternMem) }
func (m *Module) Globals() []Export { return m.filterExports(engine.ExternGlobal) }

func (m *Module) filterExports(kind engine.ExternKind) []Export {
	var out []Export
	for _, ed := range m.vi.Exports {
		if ed.Kind == kind {
			out = append(out, Export{Name: ed.Name, Kind: ed.Kind})
		}
	}
	return out
}

// Instantiate checks imports against the module's declared import
// signatures, allocates the module in the owning Runtime's Store, runs
// active element/data initializers, and (if declared) the start
// function, returning the wired Instance.
func (m *Module) Instantiate(imports []engine.ExternVal, fuel engine.Fuel) (*Instance, error) {
	outcome, err := engine.Instantiate(m.runtime.store, m.vi, imports, fuel)
	if err != nil {
		return nil, err
	}
	return &Instance{runtime: m.runtime, addr: outcome.ModuleAddr}, nil
}
