package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/runtime"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to a wasm binary")
		funcName    = flag.String("func", "", "Exported function to call (optional)")
		argStr      = flag.String("arg", "", "Comma-separated, type-prefixed arguments (i32:5,f64:1.5); a bare number defaults to i32")
		fuelN       = flag.Uint64("fuel", 0, "Fuel budget for the call (0 disables metering)")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive fuel-stepping debugger")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-arg v1,v2,...] [-fuel n]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i [-arg v1,v2,...]  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		args, err := parseArgs(*argStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: parse args: %v\n", err)
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, *fuelN, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *argStr, *fuelN, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, argStr string, fuelN uint64, listOnly bool) error {
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt := runtime.New(nil)
	mod, err := rt.LoadWASM(data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("Exports: %d\n\n", len(mod.Exports()))

	fmt.Println("Exported functions:")
	var exportedFuncs []string
	for _, e := range mod.Funcs() {
		exportedFuncs = append(exportedFuncs, e.Name)
		fmt.Printf("  %s\n", e.Name)
	}

	if listOnly {
		return nil
	}

	inst, err := mod.Instantiate(nil, fuelOf(fuelN))
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			for _, f := range exportedFuncs {
				if f == name {
					funcName = name
					break
				}
			}
			if funcName != "" {
				break
			}
		}
		if funcName == "" && len(exportedFuncs) == 1 {
			funcName = exportedFuncs[0]
		}
		if funcName == "" {
			fmt.Println("\nNo function specified and no common entry point found.")
			fmt.Println("Use -func to specify a function to call.")
			return nil
		}
	}

	args, err := parseArgs(argStr)
	if err != nil {
		return fmt.Errorf("parse args: %w", err)
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argStr)
	rs, err := inst.Call(funcName, fuelOf(fuelN), args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	switch v := rs.(type) {
	case engine.Finished:
		fmt.Printf("Result: %s\n", formatValues(v.Values))
	case engine.Suspended:
		fmt.Printf("Suspended: needs %d more fuel units\n", v.RequiredFuel)
	}

	return nil
}

func fuelOf(n uint64) engine.Fuel {
	if n == 0 {
		return engine.NoFuel()
	}
	return engine.SomeFuel(uint32(n))
}

func parseArgs(s string) ([]engine.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vals := make([]engine.Value, len(parts))
	for i, p := range parts {
		v, err := parseArg(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func parseArg(s string) (engine.Value, error) {
	ty, lit, ok := strings.Cut(s, ":")
	if !ok {
		ty, lit = "i32", s
	}
	switch ty {
	case "i32":
		n, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return engine.Value{}, fmt.Errorf("i32 %q: %w", lit, err)
		}
		return engine.I32(int32(n)), nil
	case "i64":
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return engine.Value{}, fmt.Errorf("i64 %q: %w", lit, err)
		}
		return engine.I64(n), nil
	case "f32":
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return engine.Value{}, fmt.Errorf("f32 %q: %w", lit, err)
		}
		return engine.F32(float32(f)), nil
	case "f64":
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return engine.Value{}, fmt.Errorf("f64 %q: %w", lit, err)
		}
		return engine.F64(f), nil
	default:
		return engine.Value{}, fmt.Errorf("unknown arg type %q", ty)
	}
}

func formatValues(vals []engine.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v engine.Value) string {
	switch v.Ty {
	case engine.TypeI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case engine.TypeI64:
		return fmt.Sprintf("i64:%d", v.I64Val())
	case engine.TypeF32:
		return fmt.Sprintf("f32:%g", v.F32Val())
	case engine.TypeF64:
		return fmt.Sprintf("f64:%g", v.F64Val())
	case engine.TypeV128:
		return fmt.Sprintf("v128:%x", v.V)
	default:
		return fmt.Sprintf("ref(null=%v)", v.Ref.IsNull)
	}
}
