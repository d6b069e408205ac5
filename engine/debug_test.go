package engine

import (
	"testing"

	"github.com/wippyai/wasm-engine/wasm"
)

func TestInspectSuspendedRef(t *testing.T) {
	store := NewStore(nil)
	outcome, err := Instantiate(store, addModuleVI(), nil, NoFuel())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	ev, _ := store.InstanceExport(outcome.ModuleAddr, "add")

	rs, err := store.Invoke(ev.Func, []Value{I32(4), I32(5)}, SomeFuel(2))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	susp, ok := rs.(Suspended)
	if !ok {
		t.Fatalf("RunState = %T, want Suspended", rs)
	}

	dv, err := store.Inspect(susp.Ref)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if dv.CallDepth != 1 {
		t.Errorf("CallDepth = %d, want 1 (sentinel frame only)", dv.CallDepth)
	}
	if dv.AtEnd {
		t.Error("AtEnd = true, want false: suspended before i32.add")
	}
	if dv.NextOpcode != wasm.OpI32Add {
		t.Errorf("NextOpcode = %#x, want i32.add", dv.NextOpcode)
	}
	if len(dv.Operands) != 2 {
		t.Errorf("Operands = %v, want the two pushed locals-as-operands worth of state", dv.Operands)
	}

	// Inspect must not consume the ref: a subsequent Resume should still
	// succeed.
	if _, err := store.Resume(susp.Ref); err != nil {
		t.Errorf("Resume after Inspect: %v", err)
	}
}

func TestInspectFreshRefRejected(t *testing.T) {
	store := NewStore(nil)
	ref := freshRef(0, nil, NoFuel())
	if _, err := store.Inspect(ref); err == nil || err.Kind != KindResumableNotFound {
		t.Errorf("Inspect on fresh ref: got %v, want ResumableNotFound", err)
	}
}

func TestInspectCrossStoreRefRejected(t *testing.T) {
	storeA := NewStore(nil)
	storeB := NewStore(nil)
	outcomeA, _ := Instantiate(storeA, addModuleVI(), nil, NoFuel())
	evA, _ := storeA.InstanceExport(outcomeA.ModuleAddr, "add")
	rs, _ := storeA.Invoke(evA.Func, []Value{I32(1), I32(1)}, SomeFuel(1))
	susp := rs.(Suspended)

	if _, err := storeB.Inspect(susp.Ref); err == nil || err.Kind != KindResumableNotFound {
		t.Errorf("Inspect across stores: got %v, want ResumableNotFound", err)
	}
}
