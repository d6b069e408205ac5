// Package runtime provides the high-level, embedder-facing API over the
// wasm-engine interpreter: Runtime owns a Store, Module is a decoded and
// validated binary, and Instance is a wired, running instance of one.
//
// # Quick Start
//
//	rt := runtime.New(nil)
//	mod, err := rt.LoadWASM(wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inst, err := mod.Instantiate(nil, engine.SomeFuel(100000))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rs, err := inst.Call("add", engine.NoFuel(), engine.I32(2), engine.I32(3))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fin := rs.(engine.Finished)
//	fmt.Println(fin.Values[0].I32()) // 5
//
// # Host Functions
//
// Register host functions directly on the Runtime's Store before
// instantiating a module that imports them:
//
//	addr := rt.Store().FuncAlloc(
//	    engine.FuncType{Params: []engine.ValType{engine.TypeI32}},
//	    func(userData any, params []engine.Value) ([]engine.Value, error) {
//	        fmt.Println("guest said:", params[0].I32())
//	        return nil, nil
//	    })
//
// The resulting engine.FuncAddr is wrapped in an engine.ExternVal and
// passed in Instantiate's imports slice, in import-declaration order.
//
// # Fuel and Suspension
//
// Call and Resume return an engine.RunState: engine.Finished carries
// return values and leftover fuel; engine.Suspended carries a
// ResumableRef that AddFuel and Resume can continue later, possibly
// after yielding control back to the embedder's own event loop.
// Passing engine.NoFuel() disables metering entirely.
//
// # Thread Safety
//
// Runtime and its Store are not safe for concurrent use. A goroutine
// driving an Instance should own its Runtime, or synchronize access to
// it externally.
package runtime
