// Package engine implements an embeddable WebAssembly 1.0+ execution
// engine: the stack-machine interpreter, the store that owns all module
// instance state, and a fuel-metered resumable invocation protocol.
//
// # Architecture
//
// A Store owns every address space (functions, tables, memories,
// globals, element segments, data segments, module instances). An
// Instantiate call wires a decoded ValidationInfo (produced by package
// wasm, an external collaborator) into fresh store addresses, runs
// element/data/start initializers, and returns a ModuleAddr. Invoke
// creates a Resumable bound to a function address and a parameter list;
// the interpreter loop (runInterpreter) drives it to completion, a trap, or fuel
// exhaustion.
//
// # Resumable execution
//
//	rs, err := store.Invoke(funcAddr, params, SomeFuel(10))
//	switch rs := rs.(type) {
//	case Finished:
//	        // rs.Values, rs.FuelRemaining
//	case Suspended:
//	        // store.AccessFuelMut(&rs.Ref, func(f *Fuel) { *f = NoFuel() }); store.Resume(rs.Ref)
//	}
//
// # Thread-safety
//
// A Store is not safe for concurrent use. Exactly one resume drives one
// interpreter loop at a time; host callbacks may re-enter the same store
// synchronously (e.g. to call another wasm function) but no two resumes
// execute concurrently.
//
// # Scope
//
// In scope: bulk-memory, reference-types, sign-extension,
// non-trapping-float-to-int, and 128-bit SIMD. Out of scope: JIT/AOT
// compilation, multi-threaded execution of a single instance, and any
// Wasm proposal beyond the above (GC, exception handling, tail calls,
// threads/atomics, Memory64, Component Model).
package engine
