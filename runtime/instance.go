package runtime

import "github.com/wippyai/wasm-engine/engine"

// Instance is a wired, running module instance inside its owning
// Runtime's Store. Instance is not safe for concurrent use; each
// goroutine driving an instance should hold its own Resumable refs.
type Instance struct {
	runtime *Runtime
	addr    engine.ModuleAddr
}

// Addr returns the engine.ModuleAddr backing this instance, for callers
// that need direct Store access.
func (i *Instance) Addr() engine.ModuleAddr { return i.addr }

// Call invokes the exported function name with args, running to
// completion or until fuel runs out. A Suspended RunState carries a
// ResumableRef that Resume can later continue.
func (i *Instance) Call(name string, fuel engine.Fuel, args ...engine.Value) (engine.RunState, error) {
	ev, err := i.export(name, engine.ExternFunc)
	if err != nil {
		return nil, err
	}
	rs, rerr := i.runtime.store.Invoke(ev.Func, args, fuel)
	if rerr != nil {
		return nil, rerr
	}
	return rs, nil
}

// Resume drives a previously Suspended ResumableRef forward, typically
// after AddFuel.
func (i *Instance) Resume(ref engine.ResumableRef) (engine.RunState, error) {
	rs, err := i.runtime.store.Resume(ref)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// AddFuel tops up a suspended ref's remaining budget before Resume.
func (i *Instance) AddFuel(ref *engine.ResumableRef, n uint32) error {
	if err := i.runtime.store.AccessFuelMut(ref, func(f *engine.Fuel) { f.N += n }); err != nil {
		return err
	}
	return nil
}

// GlobalRead reads the current value of an exported global.
func (i *Instance) GlobalRead(name string) (engine.Value, error) {
	ev, err := i.export(name, engine.ExternGlobal)
	if err != nil {
		return engine.Value{}, err
	}
	return i.runtime.store.GlobalRead(ev.Global), nil
}

// GlobalWrite writes an exported global, failing if it is immutable.
func (i *Instance) GlobalWrite(name string, v engine.Value) error {
	ev, err := i.export(name, engine.ExternGlobal)
	if err != nil {
		return err
	}
	if werr := i.runtime.store.GlobalWrite(ev.Global, v); werr != nil {
		return werr
	}
	return nil
}

// Memory returns the MemInst backing an exported memory, for embedders
// needing direct byte access.
func (i *Instance) Memory(name string) (*engine.MemInst, error) {
	ev, err := i.export(name, engine.ExternMem)
	if err != nil {
		return nil, err
	}
	return i.runtime.store.Mem(ev.Mem), nil
}

// Table returns the TableInst backing an exported table.
func (i *Instance) Table(name string) (*engine.TableInst, error) {
	ev, err := i.export(name, engine.ExternTable)
	if err != nil {
		return nil, err
	}
	return i.runtime.store.Table(ev.Table), nil
}

func (i *Instance) export(name string, want engine.ExternKind) (engine.ExternVal, error) {
	ev, err := i.runtime.store.InstanceExport(i.addr, name)
	if err != nil {
		return engine.ExternVal{}, err
	}
	if ev.Kind != want {
		return engine.ExternVal{}, engine.Embedder(engine.KindUnknownExport, "export %q is not a %v", name, want)
	}
	return ev, nil
}
