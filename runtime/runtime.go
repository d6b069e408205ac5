package runtime

import (
	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/wasm"
)

// Runtime owns a Store and is the entry point for loading modules. A
// Runtime is not safe for concurrent use; embedders running several
// instances concurrently should give each its own Runtime.
type Runtime struct {
	store *engine.Store
}

// New creates a Runtime backed by a fresh Store. userData is handed to
// every host function registered on the Store (engine.Store.FuncAlloc)
// as its first argument.
func New(userData any) *Runtime {
	return &Runtime{store: engine.NewStore(userData)}
}

// Store exposes the underlying engine.Store, for registering host
// functions before a module is instantiated against them.
func (r *Runtime) Store() *engine.Store { return r.store }

// LoadWASM decodes and validates a core WebAssembly binary module,
// producing a Module ready to Instantiate.
func (r *Runtime) LoadWASM(wasmBytes []byte) (*Module, error) {
	m, err := wasm.ParseModule(wasmBytes)
	if err != nil {
		return nil, errors.Load("decode module", err)
	}
	vi, err := buildValidationInfo(m)
	if err != nil {
		return nil, errors.Load("build validation info", err)
	}
	return &Module{runtime: r, vi: vi}, nil
}
